package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chime/internal/audio"
	"chime/internal/config"
	"chime/internal/ipc"
	"chime/internal/logging"
	"chime/internal/notify"
	"chime/internal/schedule"
	"chime/internal/stats"
)

// Recorder is the statistics surface the daemon needs.
type Recorder interface {
	RecordRing(ctx context.Context, now time.Time) error
	Read(ctx context.Context) (stats.Snapshot, error)
}

// ReloadFunc re-reads the configuration from disk and returns a player bound
// to the new settings. A nil player keeps the current one.
type ReloadFunc func() (*config.Config, audio.Player, error)

// Options wires the daemon's collaborators. Commands and LockEvents are
// owned by their producers; the daemon only reads from them.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Player     audio.Player
	Stats      Recorder
	Notifier   notify.Service
	Commands   <-chan ipc.Envelope
	LockEvents <-chan bool

	// InitialLocked seeds the session lock state at startup so a daemon
	// started behind a lock screen stays quiet until unlock.
	InitialLocked bool

	Reload ReloadFunc

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Daemon owns the bell state and reconciles all event sources from a single
// goroutine. No other goroutine ever touches its fields, so no locking is
// needed.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	player   audio.Player
	stats    Recorder
	notifier notify.Service
	reload   ReloadFunc
	now      func() time.Time

	commands   <-chan ipc.Envelope
	lockEvents <-chan bool

	sched          *schedule.Scheduler
	manuallyPaused bool
	sessionLocked  bool
	sessionRings   uint64

	// lastMilestone is the highest streak milestone already announced, so
	// repeated rings on the same milestone day push only once.
	lastMilestone uint64
}

// streakMilestones are the streak lengths worth a dedicated push.
var streakMilestones = []uint64{7, 30, 100, 365}

// New constructs a daemon in the running state with a fresh deadline.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Player == nil || opts.Stats == nil || opts.Commands == nil {
		return nil, errors.New("daemon requires config, player, stats, and a command channel")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewService(opts.Config)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Daemon{
		cfg:           opts.Config,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		player:        opts.Player,
		stats:         opts.Stats,
		notifier:      notifier,
		reload:        opts.Reload,
		now:           now,
		commands:      opts.Commands,
		lockEvents:    opts.LockEvents,
		sched:         schedule.New(now(), opts.Config.Interval()),
		sessionLocked: opts.InitialLocked,
	}, nil
}

// Run reconciles events until the context is canceled or a stop command
// arrives. Exactly one event is processed at a time; all side effects run
// synchronously before the next event is read.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("bell daemon started",
		logging.Duration("interval", d.sched.Interval()),
		logging.String("player", d.player.Name()),
		logging.Bool("session_locked", d.sessionLocked))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down", logging.Uint64("session_rings", d.sessionRings))
			return nil

		case <-ticker.C:
			d.handleTick(ctx, d.now())

		case env, ok := <-d.commands:
			if !ok {
				d.commands = nil
				continue
			}
			if stop := d.handleCommand(ctx, env); stop {
				d.logger.Info("stop requested", logging.Uint64("session_rings", d.sessionRings))
				return nil
			}

		case locked, ok := <-d.lockEvents:
			if !ok {
				d.lockEvents = nil
				continue
			}
			d.handleLock(locked, d.now())
		}
	}
}

func (d *Daemon) paused() bool {
	return d.manuallyPaused || d.sessionLocked
}

func (d *Daemon) handleTick(ctx context.Context, now time.Time) {
	if d.paused() {
		return
	}
	if !d.sched.Due(now) {
		return
	}
	d.fire(ctx, now)
}

// fire plays the bell and records the ring. Playback failure is logged and
// the ring still counts: the reminder is missed, not retried.
func (d *Daemon) fire(ctx context.Context, now time.Time) {
	d.sessionRings++
	d.sched.Reset(now)

	if err := d.player.Play(ctx); err != nil {
		d.logger.Warn("bell playback failed", logging.Error(err))
	}

	if err := d.stats.RecordRing(ctx, now); err != nil {
		d.logger.Error("failed to record ring", logging.Error(err))
	}

	snap, err := d.stats.Read(ctx)
	if err == nil {
		if err := d.notifier.NotifyRing(ctx, d.sessionRings, snap.CurrentStreak); err != nil {
			d.logger.Warn("ring notification failed", logging.Error(err))
		}
		if isStreakMilestone(snap.CurrentStreak) && snap.CurrentStreak > d.lastMilestone {
			d.lastMilestone = snap.CurrentStreak
			if err := d.notifier.NotifyStreakMilestone(ctx, snap.CurrentStreak); err != nil {
				d.logger.Warn("streak notification failed", logging.Error(err))
			}
		}
	}

	d.logger.Info("bell rang",
		logging.Uint64("session_rings", d.sessionRings),
		logging.Time("next_ring", d.sched.Deadline()))
}

func (d *Daemon) handleCommand(ctx context.Context, env ipc.Envelope) (stop bool) {
	now := d.now()

	var resp ipc.Response
	switch env.Cmd.Type {
	case ipc.CommandPause:
		resp = d.handlePause()
	case ipc.CommandResume:
		resp = d.handleResume(now)
	case ipc.CommandRing:
		d.fire(ctx, now)
		resp = ipc.OK()
	case ipc.CommandStatus:
		resp = d.handleStatus(ctx, now)
	case ipc.CommandReload:
		resp = d.handleReload(now)
	case ipc.CommandStop:
		resp = ipc.OK()
		stop = true
	default:
		resp = ipc.Errorf("unknown command %q", env.Cmd.Type)
	}

	select {
	case env.Reply <- resp:
	default:
		// Client disconnected; dropping the reply never affects state.
	}
	return stop
}

func (d *Daemon) handlePause() ipc.Response {
	if d.manuallyPaused {
		return ipc.Errorf("already paused")
	}
	if d.sessionLocked {
		return ipc.Errorf("session is locked")
	}
	d.manuallyPaused = true
	d.logger.Info("paused")
	return ipc.OK()
}

func (d *Daemon) handleResume(now time.Time) ipc.Response {
	if d.sessionLocked {
		// The manual pause stays remembered; unlock decides the final state.
		return ipc.Errorf("session is locked")
	}
	if !d.manuallyPaused {
		return ipc.Errorf("not paused")
	}
	d.manuallyPaused = false
	d.sched.Reset(now)
	d.logger.Info("resumed", logging.Time("next_ring", d.sched.Deadline()))
	return ipc.OK()
}

func (d *Daemon) handleStatus(ctx context.Context, now time.Time) ipc.Response {
	snap, err := d.stats.Read(ctx)
	if err != nil {
		return ipc.Errorf("read stats: %v", err)
	}

	info := ipc.StatusInfo{
		State:        d.stateLabel(),
		IntervalMins: uint64(d.sched.Interval() / time.Minute),
		SessionRings: d.sessionRings,
		Stats:        snap,
	}
	if !d.paused() {
		secs := uint64((d.sched.Remaining(now) + time.Second - 1) / time.Second)
		info.NextRingSecs = &secs
	}
	return ipc.StatusResponse(info)
}

func (d *Daemon) handleReload(now time.Time) ipc.Response {
	if d.reload == nil {
		return ipc.Errorf("reload not supported")
	}
	cfg, player, err := d.reload()
	if err != nil {
		return ipc.Errorf("reload failed: %v", err)
	}

	d.cfg = cfg
	if player != nil {
		d.player = player
	}
	d.sched.Reload(now, cfg.Interval())
	d.logger.Info("configuration reloaded",
		logging.Duration("interval", d.sched.Interval()),
		logging.Time("next_ring", d.sched.Deadline()))
	return ipc.OK()
}

func (d *Daemon) handleLock(locked bool, now time.Time) {
	if locked == d.sessionLocked {
		return
	}
	d.sessionLocked = locked

	if locked {
		d.logger.Info("session locked", logging.Bool("manually_paused", d.manuallyPaused))
		return
	}

	if d.manuallyPaused {
		d.logger.Info("session unlocked; still paused")
		return
	}
	d.sched.Reset(now)
	d.logger.Info("session unlocked", logging.Time("next_ring", d.sched.Deadline()))
}

func isStreakMilestone(streak uint64) bool {
	for _, m := range streakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

// stateLabel flattens the two pause flags into the external state name.
// Locked wins over a manual pause in the label.
func (d *Daemon) stateLabel() string {
	switch {
	case d.sessionLocked:
		return "locked"
	case d.manuallyPaused:
		return "paused"
	default:
		return "running"
	}
}
