package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"chime/internal/audio"
	"chime/internal/config"
	"chime/internal/ipc"
	"chime/internal/stats"
)

type fakePlayer struct {
	plays int
	err   error
}

func (p *fakePlayer) Name() string { return "fake" }

func (p *fakePlayer) Play(context.Context) error {
	p.plays++
	return p.err
}

type fakeStats struct {
	rings     []time.Time
	snap      stats.Snapshot
	recordErr error
	readErr   error
}

func (s *fakeStats) RecordRing(_ context.Context, now time.Time) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.rings = append(s.rings, now)
	s.snap.TotalRings++
	return nil
}

func (s *fakeStats) Read(context.Context) (stats.Snapshot, error) {
	if s.readErr != nil {
		return stats.Snapshot{}, s.readErr
	}
	return s.snap, nil
}

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	daemon *Daemon
	player *fakePlayer
	stats  *fakeStats
	now    time.Time
}

func newFixture(t *testing.T, intervalMinutes int) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Bell.IntervalMinutes = intervalMinutes

	f := &fixture{
		player: &fakePlayer{},
		stats:  &fakeStats{},
		now:    baseTime,
	}

	d, err := New(Options{
		Config:   &cfg,
		Player:   f.player,
		Stats:    f.stats,
		Commands: make(chan ipc.Envelope),
		Now:      func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.daemon = d
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) send(t *testing.T, cmd ipc.CommandType) ipc.Response {
	t.Helper()
	env := ipc.Envelope{
		Cmd:   ipc.Command{Type: cmd},
		Reply: make(chan ipc.Response, 1),
	}
	f.daemon.handleCommand(context.Background(), env)
	select {
	case resp := <-env.Reply:
		return resp
	default:
		t.Fatal("no reply delivered")
		return ipc.Response{}
	}
}

func (f *fixture) mustOK(t *testing.T, cmd ipc.CommandType) {
	t.Helper()
	resp := f.send(t, cmd)
	if resp.Type != ipc.ResponseOK {
		t.Fatalf("%s: got %s response (%s), want ok", cmd, resp.Type, resp.Message)
	}
}

func (f *fixture) mustError(t *testing.T, cmd ipc.CommandType) ipc.Response {
	t.Helper()
	resp := f.send(t, cmd)
	if resp.Type != ipc.ResponseError {
		t.Fatalf("%s: got %s response, want error", cmd, resp.Type)
	}
	return resp
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	f.daemon.handleTick(context.Background(), f.now)
}

func TestTickFiresWhenDeadlineElapses(t *testing.T) {
	f := newFixture(t, 10)

	f.advance(9 * time.Minute)
	f.tick(t)
	if f.player.plays != 0 {
		t.Fatalf("bell fired %d times before deadline", f.player.plays)
	}

	f.advance(time.Minute)
	f.tick(t)
	if f.player.plays != 1 {
		t.Fatalf("plays = %d, want 1", f.player.plays)
	}
	if len(f.stats.rings) != 1 {
		t.Fatalf("recorded rings = %d, want 1", len(f.stats.rings))
	}
	if want := f.now.Add(10 * time.Minute); !f.daemon.sched.Deadline().Equal(want) {
		t.Errorf("deadline = %v, want %v", f.daemon.sched.Deadline(), want)
	}
}

func TestTickWhilePausedDoesNotFire(t *testing.T) {
	f := newFixture(t, 10)
	f.mustOK(t, ipc.CommandPause)

	f.advance(30 * time.Minute)
	f.tick(t)
	if f.player.plays != 0 {
		t.Fatalf("bell fired while paused")
	}
}

func TestPauseResumeRestartsFullCountdown(t *testing.T) {
	f := newFixture(t, 10)

	f.advance(2 * time.Minute)
	f.mustOK(t, ipc.CommandPause)

	f.advance(3 * time.Minute)
	f.mustOK(t, ipc.CommandResume)

	if got := f.daemon.stateLabel(); got != "running" {
		t.Fatalf("state = %q, want running", got)
	}
	want := baseTime.Add(5 * time.Minute).Add(10 * time.Minute)
	if !f.daemon.sched.Deadline().Equal(want) {
		t.Errorf("deadline = %v, want %v (full interval from resume)", f.daemon.sched.Deadline(), want)
	}
}

func TestPauseAndResumeGuards(t *testing.T) {
	f := newFixture(t, 10)

	f.mustError(t, ipc.CommandResume) // not paused
	f.mustOK(t, ipc.CommandPause)
	f.mustError(t, ipc.CommandPause) // already paused
	f.mustOK(t, ipc.CommandResume)
	f.mustError(t, ipc.CommandResume)
}

func TestLockUnlockWhileManuallyPausedStaysPaused(t *testing.T) {
	f := newFixture(t, 10)

	f.mustOK(t, ipc.CommandPause)
	f.daemon.handleLock(true, f.now)
	f.daemon.handleLock(false, f.now)

	if got := f.daemon.stateLabel(); got != "paused" {
		t.Fatalf("state after lock/unlock = %q, want paused", got)
	}
	f.advance(time.Hour)
	f.tick(t)
	if f.player.plays != 0 {
		t.Fatal("bell fired while manually paused after unlock")
	}
}

func TestResumeWhileLockedIsRejected(t *testing.T) {
	f := newFixture(t, 10)

	f.mustOK(t, ipc.CommandPause)
	f.daemon.handleLock(true, f.now)

	f.mustError(t, ipc.CommandResume)
	if got := f.daemon.stateLabel(); got != "locked" {
		t.Fatalf("state = %q, want locked", got)
	}

	f.daemon.handleLock(false, f.now)
	if got := f.daemon.stateLabel(); got != "paused" {
		t.Fatalf("state after unlock = %q, want paused", got)
	}
}

func TestPauseWhileLockedIsRejected(t *testing.T) {
	f := newFixture(t, 10)

	f.daemon.handleLock(true, f.now)
	f.mustError(t, ipc.CommandPause)
}

func TestUnlockResetsDeadline(t *testing.T) {
	f := newFixture(t, 10)

	f.advance(7 * time.Minute)
	f.daemon.handleLock(true, f.now)
	f.advance(20 * time.Minute)
	f.daemon.handleLock(false, f.now)

	if got := f.daemon.stateLabel(); got != "running" {
		t.Fatalf("state = %q, want running", got)
	}
	want := f.now.Add(10 * time.Minute)
	if !f.daemon.sched.Deadline().Equal(want) {
		t.Errorf("deadline = %v, want %v", f.daemon.sched.Deadline(), want)
	}
}

func TestRingFiresInEveryState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
		state string
	}{
		{"running", func(*testing.T, *fixture) {}, "running"},
		{"paused", func(t *testing.T, f *fixture) { f.mustOK(t, ipc.CommandPause) }, "paused"},
		{"locked", func(t *testing.T, f *fixture) { f.daemon.handleLock(true, f.now) }, "locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10)
			tt.setup(t, f)

			f.mustOK(t, ipc.CommandRing)
			if f.player.plays != 1 {
				t.Errorf("plays = %d, want 1", f.player.plays)
			}
			if len(f.stats.rings) != 1 {
				t.Errorf("recorded rings = %d, want 1", len(f.stats.rings))
			}
			if got := f.daemon.stateLabel(); got != tt.state {
				t.Errorf("state after ring = %q, want %q (ring must not change state)", got, tt.state)
			}
			if want := f.now.Add(10 * time.Minute); !f.daemon.sched.Deadline().Equal(want) {
				t.Errorf("deadline = %v, want %v", f.daemon.sched.Deadline(), want)
			}
		})
	}
}

func TestAudioErrorStillRecordsRing(t *testing.T) {
	f := newFixture(t, 10)
	f.player.err = errors.New("device busy")

	f.mustOK(t, ipc.CommandRing)
	if len(f.stats.rings) != 1 {
		t.Fatalf("recorded rings = %d, want 1 despite playback failure", len(f.stats.rings))
	}
	if got := f.daemon.stateLabel(); got != "running" {
		t.Fatalf("state = %q, want running", got)
	}
}

func TestStatusReportsStateAndIsReadOnly(t *testing.T) {
	f := newFixture(t, 10)
	f.stats.snap = stats.Snapshot{TotalRings: 42, CurrentStreak: 3}

	f.advance(4 * time.Minute)
	resp := f.send(t, ipc.CommandStatus)
	if resp.Type != ipc.ResponseStatus || resp.Status == nil {
		t.Fatalf("got %s response, want status", resp.Type)
	}
	info := resp.Status
	if info.State != "running" {
		t.Errorf("state = %q, want running", info.State)
	}
	if info.IntervalMins != 10 {
		t.Errorf("interval = %d, want 10", info.IntervalMins)
	}
	if info.NextRingSecs == nil || *info.NextRingSecs != 6*60 {
		t.Errorf("next ring = %v, want 360", info.NextRingSecs)
	}
	if info.Stats.TotalRings != 42 {
		t.Errorf("stats total = %d, want 42", info.Stats.TotalRings)
	}

	deadline := f.daemon.sched.Deadline()
	f.send(t, ipc.CommandStatus)
	if !f.daemon.sched.Deadline().Equal(deadline) {
		t.Error("status mutated the deadline")
	}
	if f.player.plays != 0 || len(f.stats.rings) != 0 {
		t.Error("status produced side effects")
	}
}

func TestStatusOmitsNextRingWhilePaused(t *testing.T) {
	f := newFixture(t, 10)
	f.mustOK(t, ipc.CommandPause)

	resp := f.send(t, ipc.CommandStatus)
	if resp.Status == nil {
		t.Fatalf("got %s response, want status", resp.Type)
	}
	if resp.Status.State != "paused" {
		t.Errorf("state = %q, want paused", resp.Status.State)
	}
	if resp.Status.NextRingSecs != nil {
		t.Errorf("next ring = %d, want omitted while paused", *resp.Status.NextRingSecs)
	}
}

func TestStatusLabelPrefersLocked(t *testing.T) {
	f := newFixture(t, 10)
	f.mustOK(t, ipc.CommandPause)
	f.daemon.handleLock(true, f.now)

	resp := f.send(t, ipc.CommandStatus)
	if resp.Status == nil || resp.Status.State != "locked" {
		t.Fatalf("state = %v, want locked", resp.Status)
	}
}

func TestReloadRestartsCountdownWithNewInterval(t *testing.T) {
	f := newFixture(t, 10)
	f.daemon.reload = func() (*config.Config, audio.Player, error) {
		cfg := config.Default()
		cfg.Bell.IntervalMinutes = 5
		return &cfg, nil, nil
	}

	f.advance(8 * time.Minute)
	f.mustOK(t, ipc.CommandReload)

	if got := f.daemon.sched.Interval(); got != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", got)
	}
	want := f.now.Add(5 * time.Minute)
	if !f.daemon.sched.Deadline().Equal(want) {
		t.Errorf("deadline = %v, want %v (reload restarts countdown)", f.daemon.sched.Deadline(), want)
	}
}

func TestReloadFailureKeepsCurrentConfig(t *testing.T) {
	f := newFixture(t, 10)
	f.daemon.reload = func() (*config.Config, audio.Player, error) {
		return nil, nil, errors.New("interval_minutes must be positive")
	}

	deadline := f.daemon.sched.Deadline()
	f.mustError(t, ipc.CommandReload)

	if got := f.daemon.sched.Interval(); got != 10*time.Minute {
		t.Errorf("interval = %v, want unchanged 10m", got)
	}
	if !f.daemon.sched.Deadline().Equal(deadline) {
		t.Error("failed reload moved the deadline")
	}
}

func TestUnknownCommandYieldsError(t *testing.T) {
	f := newFixture(t, 10)

	resp := f.send(t, ipc.CommandType("snooze"))
	if resp.Type != ipc.ResponseError {
		t.Fatalf("got %s response, want error", resp.Type)
	}
	if f.player.plays != 0 || len(f.stats.rings) != 0 {
		t.Error("unknown command produced side effects")
	}
}

func TestRunStopsOnStopCommand(t *testing.T) {
	f := newFixture(t, 10)
	commands := make(chan ipc.Envelope)
	f.daemon.commands = commands

	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(context.Background()) }()

	env := ipc.Envelope{
		Cmd:   ipc.Command{Type: ipc.CommandStop},
		Reply: make(chan ipc.Response, 1),
	}
	commands <- env

	if resp := <-env.Reply; resp.Type != ipc.ResponseOK {
		t.Fatalf("stop reply = %s, want ok", resp.Type)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after stop")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}

type fakeNotifier struct {
	rings      int
	milestones []uint64
}

func (n *fakeNotifier) NotifyRing(context.Context, uint64, uint64) error {
	n.rings++
	return nil
}

func (n *fakeNotifier) NotifyStreakMilestone(_ context.Context, streak uint64) error {
	n.milestones = append(n.milestones, streak)
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }

func TestStreakMilestonePushedOnce(t *testing.T) {
	f := newFixture(t, 10)
	notifier := &fakeNotifier{}
	f.daemon.notifier = notifier
	f.stats.snap.CurrentStreak = 7

	f.mustOK(t, ipc.CommandRing)
	f.mustOK(t, ipc.CommandRing)

	if len(notifier.milestones) != 1 || notifier.milestones[0] != 7 {
		t.Fatalf("milestone pushes = %v, want exactly one for streak 7", notifier.milestones)
	}
	if notifier.rings != 2 {
		t.Errorf("ring pushes = %d, want 2", notifier.rings)
	}
}

func TestNonMilestoneStreakNotPushed(t *testing.T) {
	f := newFixture(t, 10)
	notifier := &fakeNotifier{}
	f.daemon.notifier = notifier
	f.stats.snap.CurrentStreak = 6

	f.mustOK(t, ipc.CommandRing)

	if len(notifier.milestones) != 0 {
		t.Fatalf("milestone pushes = %v, want none for streak 6", notifier.milestones)
	}
}
