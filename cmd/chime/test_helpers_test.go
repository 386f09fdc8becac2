package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chime/internal/config"
	"chime/internal/daemon"
	"chime/internal/ipc"
	"chime/internal/logging"
	"chime/internal/stats"
	"chime/internal/testsupport"
)

type stubPlayer struct {
	plays int
}

func (p *stubPlayer) Name() string { return "stub" }

func (p *stubPlayer) Play(context.Context) error {
	p.plays++
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *stats.Store
	player     *stubPlayer
	socketPath string
	configPath string
	done       chan error
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(filepath.Dir(cfg.Paths.DataDir), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStats(t, cfg)
	player := &stubPlayer{}

	ctx, cancel := context.WithCancel(context.Background())
	commands := make(chan ipc.Envelope)
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, commands, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	d, err := daemon.New(daemon.Options{
		Config:   cfg,
		Player:   player,
		Stats:    store,
		Commands: commands,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		err := d.Run(ctx)
		// Mirror the production shutdown order: the socket disappears as
		// soon as the loop exits so `chime stop` sees the daemon go away.
		srv.Close()
		done <- err
	}()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		player:     player,
		socketPath: socketPath,
		configPath: configPath,
		done:       done,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("daemon loop did not exit")
		}
	})
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[bell]\ninterval_minutes = %d\nvolume = %d\n\n[paths]\ndata_dir = %q\nlog_dir = %q\n",
		cfg.Bell.IntervalMinutes,
		cfg.Bell.Volume,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
