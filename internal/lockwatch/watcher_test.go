package lockwatch

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"

	"chime/internal/logging"
)

func newTestWatcher() *Watcher {
	return &Watcher{
		sessionPath: dbus.ObjectPath("/org/freedesktop/login1/session/_32"),
		events:      make(chan bool, 4),
		logger:      logging.NewNop(),
	}
}

func TestHandleSignalLockAndUnlock(t *testing.T) {
	w := newTestWatcher()
	ctx := context.Background()

	w.handleSignal(ctx, &dbus.Signal{
		Path: w.sessionPath,
		Name: sessionInterface + ".Lock",
	})
	w.handleSignal(ctx, &dbus.Signal{
		Path: w.sessionPath,
		Name: sessionInterface + ".Unlock",
	})

	if got := <-w.events; got != true {
		t.Errorf("first event = %v, want true", got)
	}
	if got := <-w.events; got != false {
		t.Errorf("second event = %v, want false", got)
	}
}

func TestHandleSignalIgnoresOtherSessions(t *testing.T) {
	w := newTestWatcher()

	w.handleSignal(context.Background(), &dbus.Signal{
		Path: dbus.ObjectPath("/org/freedesktop/login1/session/_33"),
		Name: sessionInterface + ".Lock",
	})

	select {
	case got := <-w.events:
		t.Fatalf("unexpected event %v for foreign session", got)
	default:
	}
}

func TestHandleSignalIgnoresUnrelatedMembers(t *testing.T) {
	w := newTestWatcher()

	w.handleSignal(context.Background(), &dbus.Signal{
		Path: w.sessionPath,
		Name: sessionInterface + ".PauseDevice",
	})

	select {
	case got := <-w.events:
		t.Fatalf("unexpected event %v for unrelated signal", got)
	default:
	}
}
