package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	_ "embed"

	"chime/internal/logging"
)

//go:embed assets/bell.wav
var bellWAV []byte

// Player produces the bell sound. Play blocks until playback completes or
// the context is canceled.
type Player interface {
	Play(ctx context.Context) error
	Name() string
}

// backend describes one external player candidate. Candidates are probed in
// order and the first binary found on PATH wins.
type backend struct {
	name string
	args func(volume int, assetPath string) []string
}

var backends = []backend{
	{
		name: "pw-play",
		args: func(volume int, assetPath string) []string {
			return []string{"--volume", strconv.FormatFloat(float64(volume)/100, 'f', 2, 64), assetPath}
		},
	},
	{
		name: "paplay",
		args: func(volume int, assetPath string) []string {
			return []string{"--volume", strconv.Itoa(volume * 65536 / 100), assetPath}
		},
	},
	{
		name: "ffplay",
		args: func(volume int, assetPath string) []string {
			return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(volume), assetPath}
		},
	},
	{
		name: "aplay",
		args: func(volume int, assetPath string) []string {
			// aplay has no volume control; play at device level.
			return []string{"-q", assetPath}
		},
	},
}

// Detect probes the ranked backends and returns a player bound to the first
// binary found on PATH. When no backend is available the returned player
// fails every Play call so rings are still recorded.
func Detect(volume int, logger *slog.Logger) Player {
	log := logging.NewComponentLogger(logger, "audio")
	for _, b := range backends {
		binPath, err := exec.LookPath(b.name)
		if err != nil {
			continue
		}
		log.Info("audio backend selected",
			logging.String("backend", b.name),
			logging.String("path", binPath),
			logging.Int("volume", volume))
		return &externalPlayer{
			binary:  binPath,
			backend: b,
			volume:  volume,
			logger:  log,
		}
	}
	log.Warn("no audio backend found; bell rings will be silent")
	return &nullPlayer{}
}

type externalPlayer struct {
	binary    string
	backend   backend
	volume    int
	logger    *slog.Logger
	assetPath string
}

func (p *externalPlayer) Name() string { return p.backend.name }

func (p *externalPlayer) Play(ctx context.Context) error {
	assetPath, err := p.ensureAsset()
	if err != nil {
		return fmt.Errorf("write bell asset: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.binary, p.backend.args(p.volume, assetPath)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s playback: %w", p.backend.name, err)
	}
	return nil
}

// ensureAsset materializes the embedded WAV on disk for the external player.
// The path is content-addressed so a stale cache from an older build is
// never reused.
func (p *externalPlayer) ensureAsset() (string, error) {
	if p.assetPath != "" {
		if _, err := os.Stat(p.assetPath); err == nil {
			return p.assetPath, nil
		}
	}

	sum := sha256.Sum256(bellWAV)
	path := filepath.Join(os.TempDir(), fmt.Sprintf("chime-bell-%s.wav", hex.EncodeToString(sum[:8])))
	if info, err := os.Stat(path); err == nil && info.Size() == int64(len(bellWAV)) {
		p.assetPath = path
		return path, nil
	}
	if err := os.WriteFile(path, bellWAV, 0o644); err != nil {
		return "", err
	}
	p.assetPath = path
	return path, nil
}

// nullPlayer is bound when no backend binary exists on PATH.
type nullPlayer struct{}

func (*nullPlayer) Name() string { return "none" }

func (*nullPlayer) Play(context.Context) error {
	return fmt.Errorf("no audio player available (tried %s)", backendNames())
}

func backendNames() string {
	names := ""
	for i, b := range backends {
		if i > 0 {
			names += ", "
		}
		names += b.name
	}
	return names
}
