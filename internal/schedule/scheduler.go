package schedule

import "time"

// Scheduler owns the absolute deadline for the next reminder. The daemon
// loop is the only caller; no internal locking is needed.
type Scheduler struct {
	interval time.Duration
	deadline time.Time
}

// New creates a scheduler whose first deadline is now plus the interval.
// Interval validation happens in config; values here are assumed positive.
func New(now time.Time, interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		deadline: now.Add(interval),
	}
}

// Due reports whether the deadline has passed.
func (s *Scheduler) Due(now time.Time) bool {
	return !now.Before(s.deadline)
}

// Reset restarts the countdown from now, keeping the current interval.
// Called after a fire, a manual resume, and an unlock back to running.
func (s *Scheduler) Reset(now time.Time) {
	s.deadline = now.Add(s.interval)
}

// Reload swaps in a new interval and restarts the countdown from now.
// Remaining time on the old interval is discarded: a reload eight minutes
// into a ten-minute countdown with a new five-minute interval fires at
// now+5m. The countdown is never pro-rated.
func (s *Scheduler) Reload(now time.Time, interval time.Duration) {
	s.interval = interval
	s.deadline = now.Add(interval)
}

// Remaining returns the time until the deadline, clamped at zero.
func (s *Scheduler) Remaining(now time.Time) time.Duration {
	if remaining := s.deadline.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Interval returns the currently configured interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Deadline returns the absolute time of the next fire.
func (s *Scheduler) Deadline() time.Time {
	return s.deadline
}
