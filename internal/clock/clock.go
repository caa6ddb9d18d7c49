// Package clock supplies the time source used for every persisted
// timestamp, so tests can control ordering.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Stepping returns start on the first call and advances by step on each
// subsequent call. Safe for concurrent use.
type Stepping struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{next: start.UTC(), step: step}
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.next
	s.next = s.next.Add(s.step)
	return now
}

// Advance moves the clock forward without consuming a reading.
func (s *Stepping) Advance(d time.Duration) {
	s.mu.Lock()
	s.next = s.next.Add(d)
	s.mu.Unlock()
}
