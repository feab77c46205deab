package deps

import (
	"os/exec"
	"sync"
)

// Checker reports whether an external capability is usable on this host.
type Checker interface {
	Status() Status
}

// Probe is a lazily evaluated Checker for a single binary. A positive result
// is cached for the life of the probe; a negative result is re-checked on the
// next call so installing the tool does not require a restart.
type Probe struct {
	req      Requirement
	lookPath func(string) (string, error)

	mu     sync.Mutex
	status *Status
}

// ProbeOption customizes a Probe.
type ProbeOption func(*Probe)

// WithLookPath overrides binary resolution (tests).
func WithLookPath(fn func(string) (string, error)) ProbeOption {
	return func(p *Probe) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// NewProbe constructs a probe for req.
func NewProbe(req Requirement, opts ...ProbeOption) *Probe {
	p := &Probe{req: req, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status returns the current availability of the probed binary.
func (p *Probe) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return *p.status
	}
	status := checkOne(p.req, p.lookPath)
	if status.Available {
		p.status = &status
	}
	return status
}

// Static is a Checker with a fixed answer.
type Static Status

// Status implements Checker.
func (s Static) Status() Status { return Status(s) }
