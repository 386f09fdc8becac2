package ipc

import (
	"fmt"

	"chime/internal/stats"
)

// CommandType enumerates the control commands a client can send.
type CommandType string

const (
	CommandPause  CommandType = "pause"
	CommandResume CommandType = "resume"
	CommandStop   CommandType = "stop"
	CommandStatus CommandType = "status"
	CommandRing   CommandType = "ring"
	CommandReload CommandType = "reload"
)

// Command is the single framed request a connection carries.
type Command struct {
	Type CommandType `json:"type"`
}

// Valid reports whether the command type is one the daemon understands.
func (c Command) Valid() bool {
	switch c.Type {
	case CommandPause, CommandResume, CommandStop, CommandStatus, CommandRing, CommandReload:
		return true
	}
	return false
}

// ResponseType enumerates the reply variants.
type ResponseType string

const (
	ResponseOK     ResponseType = "ok"
	ResponseStatus ResponseType = "status"
	ResponseError  ResponseType = "error"
)

// StatsSnapshot mirrors the persisted statistics counters for status replies.
type StatsSnapshot = stats.Snapshot

// StatusInfo describes the daemon state for a status reply.
type StatusInfo struct {
	State        string        `json:"state"`
	NextRingSecs *uint64       `json:"next_ring_secs,omitempty"`
	IntervalMins uint64        `json:"interval_mins"`
	SessionRings uint64        `json:"session_rings"`
	Stats        StatsSnapshot `json:"stats"`
}

// Response is the single framed reply a connection carries.
type Response struct {
	Type    ResponseType `json:"type"`
	Status  *StatusInfo  `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
}

// OK builds an acknowledgement response.
func OK() Response {
	return Response{Type: ResponseOK}
}

// Errorf builds an error response with a formatted message.
func Errorf(format string, args ...any) Response {
	return Response{Type: ResponseError, Message: fmt.Sprintf(format, args...)}
}

// StatusResponse wraps status info in a response.
func StatusResponse(info StatusInfo) Response {
	return Response{Type: ResponseStatus, Status: &info}
}

// Envelope pairs a decoded command with the reply channel for its
// connection. The connection goroutine owns the channel; dropping it
// without a reply means the client disconnected.
type Envelope struct {
	Cmd   Command
	Reply chan Response
}
