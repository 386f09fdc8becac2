// Package daemon contains the bell state machine.
//
// A single goroutine owns all mutable state (pause flags, deadline, session
// ring count) and selects over four event sources: a one-second ticker, the
// control channel, session lock events, and context cancellation. Events are
// reconciled one at a time, so transitions never race and the state needs no
// locks.
package daemon
