// Package notifications publishes job alerts to ntfy.
//
// An empty topic yields a no-op Service, so callers never check whether
// alerts are enabled.
package notifications
