package schedule_test

import (
	"testing"
	"time"

	"chime/internal/schedule"
)

func TestNewDeadlineIsNowPlusInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := schedule.New(now, 10*time.Minute)

	if got := s.Deadline(); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected deadline: %v", got)
	}
	if s.Due(now) {
		t.Fatal("scheduler should not be due immediately after creation")
	}
	if s.Due(now.Add(9 * time.Minute)) {
		t.Fatal("scheduler should not be due before the deadline")
	}
	if !s.Due(now.Add(10 * time.Minute)) {
		t.Fatal("scheduler should be due exactly at the deadline")
	}
}

func TestResetRestartsFullCountdown(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := schedule.New(start, 10*time.Minute)

	// Two minutes elapse, then the countdown restarts at the five minute
	// mark. The next fire must be a full interval after the restart, not
	// the original deadline.
	resumeAt := start.Add(5 * time.Minute)
	s.Reset(resumeAt)

	want := resumeAt.Add(10 * time.Minute)
	if got := s.Deadline(); !got.Equal(want) {
		t.Fatalf("Reset deadline = %v, want %v", got, want)
	}
	if s.Due(start.Add(10 * time.Minute)) {
		t.Fatal("original deadline must not survive a reset")
	}
}

func TestReloadDiscardsElapsedProgress(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := schedule.New(start, 10*time.Minute)

	reloadAt := start.Add(8 * time.Minute)
	s.Reload(reloadAt, 5*time.Minute)

	want := reloadAt.Add(5 * time.Minute)
	if got := s.Deadline(); !got.Equal(want) {
		t.Fatalf("Reload deadline = %v, want %v", got, want)
	}
	if s.Interval() != 5*time.Minute {
		t.Fatalf("Reload interval = %v, want 5m", s.Interval())
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := schedule.New(now, time.Minute)

	if got := s.Remaining(now); got != time.Minute {
		t.Fatalf("Remaining = %v, want 1m", got)
	}
	if got := s.Remaining(now.Add(30 * time.Second)); got != 30*time.Second {
		t.Fatalf("Remaining = %v, want 30s", got)
	}
	if got := s.Remaining(now.Add(2 * time.Minute)); got != 0 {
		t.Fatalf("Remaining past deadline = %v, want 0", got)
	}
}
