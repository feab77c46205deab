package workflow

// Stats is a point-in-time view of the executor for monitoring.
type Stats struct {
	Running   bool
	Workers   int
	Active    int
	Pending   int
	Submitted int
	Succeeded int
	Failed    int
}

// Stats returns the current executor counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Running:   e.started && !e.stopped,
		Workers:   e.workers,
		Active:    e.active,
		Pending:   len(e.pending),
		Submitted: e.counts.submitted,
		Succeeded: e.counts.succeeded,
		Failed:    e.counts.failed,
	}
}
