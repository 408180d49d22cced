// Package clock provides athlete.Clock implementations.
package clock

import "time"

// System reads the wall clock.
type System struct{}

// New creates a System clock.
func New() *System {
	return &System{}
}

// Now returns the current time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant. Merges and cache freshness checks
// driven by a Fixed clock are reproducible.
type Fixed struct {
	At time.Time
}

// NewFixed creates a Fixed clock.
func NewFixed(at time.Time) *Fixed {
	return &Fixed{At: at}
}

// Now returns the configured instant.
func (f *Fixed) Now() time.Time {
	return f.At
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}
