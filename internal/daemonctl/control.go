// Package daemonctl orchestrates the daemon process from the CLI side:
// launching it detached, waiting for the control socket, and stopping it.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"chime/internal/ipc"
)

// ErrDaemonNotRunning indicates the control socket is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

const pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
}

// StartState describes the outcome of EnsureStarted.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// Launch starts a detached daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for control socket availability and returns a client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			if _, err = client.Status(); err == nil {
				return client, nil
			}
		}
		lastErr = err
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon when the socket is absent and waits for
// it to answer a status request.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		if _, statusErr := client.Status(); statusErr == nil {
			return StartResult{State: StartStateAlreadyRunning}, nil
		}
		// Stale socket from a dead daemon; launching will replace it.
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if _, err := WaitForClient(socketPath, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// StopAndWait requests daemon shutdown and waits for the socket to disappear.
func StopAndWait(socketPath string, timeout time.Duration) error {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return err
	}

	resp, err := client.Stop()
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return err
	}
	if resp.Type == ipc.ResponseError {
		return fmt.Errorf("daemon refused to stop: %s", resp.Message)
	}

	return WaitForShutdown(socketPath, timeout)
}

// WaitForShutdown waits for the control socket to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ipc.Running(socketPath) {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, ipc.ErrDaemonNotRunning) ||
		os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
