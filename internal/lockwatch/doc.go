// Package lockwatch tracks the desktop session lock state via systemd-logind.
//
// The daemon uses it to pause the bell while the screen is locked. Platforms
// without logind simply fail Start; the daemon then runs without lock
// awareness.
package lockwatch
