// Package clock provides time sources for outcome timestamps.
package clock

import (
	"sync"
	"time"
)

// System implements crawler.Clock using the wall clock in UTC.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Stepper is a deterministic clock that advances by a fixed step on every call.
type Stepper struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepper starts at start and advances by step after each Now.
func NewStepper(start time.Time, step time.Duration) *Stepper {
	return &Stepper{next: start.UTC(), step: step}
}

// Now returns the current reading and advances the clock.
func (s *Stepper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.next
	s.next = s.next.Add(s.step)
	return now
}
