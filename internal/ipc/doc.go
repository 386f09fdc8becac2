// Package ipc exposes the daemon control channel over a Unix domain socket
// and ships the matching client used by the CLI.
//
// The protocol is one framed JSON message per connection in each direction:
// the client writes a Command line, the daemon writes a Response line, and
// the connection closes. Malformed requests are answered with an error
// response without ever reaching the daemon loop. The server owns socket
// lifecycle: it removes a stale socket before binding and removes its own
// socket on Close.
package ipc
