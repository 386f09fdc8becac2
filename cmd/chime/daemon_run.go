package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"chime/internal/audio"
	"chime/internal/config"
	"chime/internal/daemon"
	"chime/internal/ipc"
	"chime/internal/lockwatch"
	"chime/internal/logging"
	"chime/internal/stats"
)

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := preflightDirectories(cfg); err != nil {
		return err
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "chime.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "chimed.lock")
	instanceLock := flock.New(lockPath)
	locked, err := instanceLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another chime daemon instance is already running (lock: %s)", lockPath)
	}
	defer func() {
		if err := instanceLock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	store, err := stats.Open(cfg)
	if err != nil {
		logger.Error("open stats store", logging.Error(err))
		return err
	}
	defer store.Close()

	player := audio.Detect(cfg.Bell.Volume, logger)

	var lockEvents <-chan bool
	initialLocked := false
	if cfg.Pause.OnSessionLock {
		watcher, watchErr := lockwatch.Start(signalCtx, logger)
		if watchErr != nil {
			logger.Warn("session lock monitoring unavailable", logging.Error(watchErr))
		} else {
			lockEvents = watcher.Events()
			initialLocked = watcher.Initial()
		}
	}

	commands := make(chan ipc.Envelope)
	socketPath := ctx.socketPath()
	server, err := ipc.NewServer(signalCtx, socketPath, commands, logger)
	if err != nil {
		return fmt.Errorf("start control socket: %w", err)
	}
	defer server.Close()
	server.Serve()

	configPath := ctx.configPath()
	reload := func() (*config.Config, audio.Player, error) {
		newCfg, _, _, loadErr := config.Load(configPath)
		if loadErr != nil {
			return nil, nil, loadErr
		}
		return newCfg, audio.Detect(newCfg.Bell.Volume, logger), nil
	}

	d, err := daemon.New(daemon.Options{
		Config:        cfg,
		Logger:        logger,
		Player:        player,
		Stats:         store,
		Commands:      commands,
		LockEvents:    lockEvents,
		InitialLocked: initialLocked,
		Reload:        reload,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	return d.Run(signalCtx)
}

// preflightDirectories verifies the data and log directories exist and are
// usable before anything opens files in them.
func preflightDirectories(cfg *config.Config) error {
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return fmt.Errorf("insufficient permissions on %s: %w", dir, err)
		}
	}
	return nil
}
