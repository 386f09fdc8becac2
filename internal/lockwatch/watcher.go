package lockwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"

	"chime/internal/logging"
)

const (
	login1Dest       = "org.freedesktop.login1"
	login1Path       = dbus.ObjectPath("/org/freedesktop/login1")
	managerInterface = "org.freedesktop.login1.Manager"
	sessionInterface = "org.freedesktop.login1.Session"
)

// Watcher follows the lock state of the current login session over the
// system D-Bus. Lock transitions are delivered on Events as booleans
// (true = locked). The channel is closed when the watcher stops; if the
// bus connection is lost a final false is emitted first so the consumer
// falls back to the unlocked state.
type Watcher struct {
	conn        *dbus.Conn
	sessionPath dbus.ObjectPath
	events      chan bool
	signals     chan *dbus.Signal
	initial     bool
	logger      *slog.Logger
}

// Start connects to the system bus, resolves the caller's login session and
// subscribes to its Lock/Unlock signals.
func Start(ctx context.Context, logger *slog.Logger) (*Watcher, error) {
	log := logging.NewComponentLogger(logger, "lockwatch")

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	sessionPath, err := resolveSessionPath(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	locked, err := lockedHint(conn, sessionPath)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read LockedHint: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(sessionPath),
		dbus.WithMatchInterface(sessionInterface),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to session signals: %w", err)
	}

	w := &Watcher{
		conn:        conn,
		sessionPath: sessionPath,
		events:      make(chan bool, 4),
		signals:     make(chan *dbus.Signal, 16),
		initial:     locked,
		logger:      log,
	}
	conn.Signal(w.signals)

	log.Info("watching session lock state",
		logging.String("session", string(sessionPath)),
		logging.Bool("locked", locked))

	go w.run(ctx)
	return w, nil
}

// Initial reports whether the session was already locked when the watcher
// started.
func (w *Watcher) Initial() bool { return w.initial }

// Events delivers lock transitions. Closed when the watcher stops.
func (w *Watcher) Events() <-chan bool { return w.events }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)
	defer w.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-w.signals:
			if !ok {
				// Bus connection lost. Treat the session as unlocked so the
				// bell is not silenced indefinitely.
				w.logger.Warn("session bus connection lost; assuming unlocked")
				select {
				case w.events <- false:
				case <-ctx.Done():
				}
				return
			}
			w.handleSignal(ctx, sig)
		}
	}
}

func (w *Watcher) handleSignal(ctx context.Context, sig *dbus.Signal) {
	if sig.Path != w.sessionPath {
		return
	}
	switch sig.Name {
	case sessionInterface + ".Lock":
		w.deliver(ctx, true)
	case sessionInterface + ".Unlock":
		w.deliver(ctx, false)
	}
}

func (w *Watcher) deliver(ctx context.Context, locked bool) {
	select {
	case w.events <- locked:
	case <-ctx.Done():
	}
}

// resolveSessionPath finds the login1 session object for this process:
// by $XDG_SESSION_ID when set, otherwise by PID.
func resolveSessionPath(conn *dbus.Conn) (dbus.ObjectPath, error) {
	manager := conn.Object(login1Dest, login1Path)

	var path dbus.ObjectPath
	if id := strings.TrimSpace(os.Getenv("XDG_SESSION_ID")); id != "" {
		if err := manager.Call(managerInterface+".GetSession", 0, id).Store(&path); err != nil {
			return "", fmt.Errorf("GetSession %q: %w", id, err)
		}
		return path, nil
	}

	if err := manager.Call(managerInterface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
		return "", fmt.Errorf("GetSessionByPID: %w", err)
	}
	return path, nil
}

func lockedHint(conn *dbus.Conn, sessionPath dbus.ObjectPath) (bool, error) {
	session := conn.Object(login1Dest, sessionPath)
	variant, err := session.GetProperty(sessionInterface + ".LockedHint")
	if err != nil {
		return false, err
	}
	locked, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("LockedHint has unexpected type %T", variant.Value())
	}
	return locked, nil
}
