// Package audio plays the bell sound through an external player.
//
// The bell sample ships embedded in the binary. At startup the daemon probes
// a ranked list of player binaries (pw-play, paplay, ffplay, aplay) and binds
// the first one found; playback failures are reported to the caller rather
// than retried, so a ring is never replayed late.
package audio
