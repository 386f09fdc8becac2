package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const socketName = "chime.sock"

// DefaultSocketPath returns the control socket location for the invoking
// user: $XDG_RUNTIME_DIR/chime.sock, falling back to /run/user/<uid> and
// finally the system temp directory.
func DefaultSocketPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, socketName)
	}
	runDir := fmt.Sprintf("/run/user/%d", os.Getuid())
	if info, err := os.Stat(runDir); err == nil && info.IsDir() {
		return filepath.Join(runDir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}
