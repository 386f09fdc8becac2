package audio

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"chime/internal/logging"
)

func backendByName(t *testing.T, name string) backend {
	t.Helper()
	for _, b := range backends {
		if b.name == name {
			return b
		}
	}
	t.Fatalf("no backend named %q", name)
	return backend{}
}

func TestBackendArgs(t *testing.T) {
	tests := []struct {
		backend string
		volume  int
		want    []string
	}{
		{"pw-play", 70, []string{"--volume", "0.70", "bell.wav"}},
		{"pw-play", 100, []string{"--volume", "1.00", "bell.wav"}},
		{"paplay", 50, []string{"--volume", "32768", "bell.wav"}},
		{"ffplay", 70, []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", "70", "bell.wav"}},
		{"aplay", 70, []string{"-q", "bell.wav"}},
	}

	for _, tt := range tests {
		b := backendByName(t, tt.backend)
		got := b.args(tt.volume, "bell.wav")
		if !slices.Equal(got, tt.want) {
			t.Errorf("%s args(%d) = %v, want %v", tt.backend, tt.volume, got, tt.want)
		}
	}
}

func stubBinary(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func TestDetectPrefersRankedOrder(t *testing.T) {
	dir := t.TempDir()
	stubBinary(t, dir, "aplay")
	stubBinary(t, dir, "paplay")
	t.Setenv("PATH", dir)

	player := Detect(70, logging.NewNop())
	if player.Name() != "paplay" {
		t.Fatalf("selected %q, want paplay", player.Name())
	}
}

func TestDetectFallsBackToNullPlayer(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	player := Detect(70, logging.NewNop())
	if player.Name() != "none" {
		t.Fatalf("selected %q, want none", player.Name())
	}

	err := player.Play(context.Background())
	if err == nil {
		t.Fatal("null player Play succeeded")
	}
	if !strings.Contains(err.Error(), "no audio player") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnsureAssetCachesFile(t *testing.T) {
	p := &externalPlayer{backend: backendByName(t, "aplay"), volume: 70}

	first, err := p.ensureAsset()
	if err != nil {
		t.Fatalf("ensureAsset failed: %v", err)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if len(data) != len(bellWAV) {
		t.Fatalf("asset size = %d, want %d", len(data), len(bellWAV))
	}

	second, err := p.ensureAsset()
	if err != nil {
		t.Fatalf("second ensureAsset failed: %v", err)
	}
	if first != second {
		t.Errorf("asset path changed between calls: %q vs %q", first, second)
	}
}
