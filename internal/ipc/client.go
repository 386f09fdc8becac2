package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrDaemonNotRunning indicates no daemon owns the control socket.
var ErrDaemonNotRunning = errors.New("daemon is not running")

const dialTimeout = 2 * time.Second

// Client sends one command per connection to the daemon.
type Client struct {
	path string
}

// Dial verifies the control socket exists and returns a client for it.
func Dial(path string) (*Client, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("stat socket: %w", err)
	}
	return &Client{path: path}, nil
}

// Running reports whether a daemon currently owns the socket path.
func Running(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Send opens a connection, writes the command as one framed JSON line,
// and reads the single framed response.
func (c *Client) Send(cmd Command) (Response, error) {
	conn, err := net.DialTimeout("unix", c.path, dialTimeout)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("encode command: %w", err)
	}
	payload = append(payload, '\n')

	_ = conn.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := conn.Write(payload); err != nil {
		return Response{}, fmt.Errorf("send command: %w", err)
	}

	line, err := bufio.NewReaderSize(conn, maxRequestBytes).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Pause suspends scheduled reminders.
func (c *Client) Pause() (Response, error) { return c.Send(Command{Type: CommandPause}) }

// Resume reinstates scheduled reminders with a fresh countdown.
func (c *Client) Resume() (Response, error) { return c.Send(Command{Type: CommandResume}) }

// Stop shuts the daemon down.
func (c *Client) Stop() (Response, error) { return c.Send(Command{Type: CommandStop}) }

// Status fetches the daemon state and statistics snapshot.
func (c *Client) Status() (Response, error) { return c.Send(Command{Type: CommandStatus}) }

// Ring fires the reminder immediately, regardless of pause state.
func (c *Client) Ring() (Response, error) { return c.Send(Command{Type: CommandRing}) }

// Reload re-reads the configuration file.
func (c *Client) Reload() (Response, error) { return c.Send(Command{Type: CommandReload}) }
