package simulation

import (
	"context"
	"time"
)

const minInterval = 2 * time.Millisecond

// Interval is the delay between two frames of the pacing loop.
func (s *Simulator) Interval() time.Duration { return time.Duration(s.interval.Load()) }

func (s *Simulator) SetInterval(d time.Duration) {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	s.interval.Store(int64(d))
}

// Faster halves the interval while it is at least 2ms.
func (s *Simulator) Faster() time.Duration {
	d := s.Interval()
	if d >= minInterval {
		d /= 2
		s.interval.Store(int64(d))
	}
	return d
}

// Slower doubles the interval.
func (s *Simulator) Slower() time.Duration {
	d := s.Interval() * 2
	s.interval.Store(int64(d))
	return d
}

// Run is the pacing loop. Every interval it executes one tick if the running
// flag is set; while paused the loop keeps going, positions stay frozen and
// observers still receive a frame.
// It returns when ctx is cancelled or a tick fails.
func (s *Simulator) Run(ctx context.Context) error {
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if s.running.Load() {
			if err := s.Step(); err != nil {
				return err
			}
		} else {
			s.mu.Lock()
			s.notify()
			s.mu.Unlock()
		}
		timer.Reset(s.Interval())
	}
}
