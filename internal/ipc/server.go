package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"chime/internal/logging"
)

// maxRequestBytes bounds a single framed request line.
const maxRequestBytes = 16 * 1024

// replyTimeout bounds how long a connection waits for the daemon loop to
// answer before the client is cut loose.
const replyTimeout = 30 * time.Second

// Server accepts control connections on a Unix domain socket. Each
// connection carries exactly one framed JSON command; the decoded command
// and its reply channel are handed to the daemon loop via the commands
// channel, and the single response is written back before the connection
// closes. Malformed requests are answered directly without involving the
// daemon.
type Server struct {
	path     string
	commands chan<- Envelope
	logger   *slog.Logger
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the control socket at the given path. A stale socket
// file from a previous run is removed first; an actual bind failure is a
// startup error for the caller.
func NewServer(ctx context.Context, path string, commands chan<- Envelope, logger *slog.Logger) (*Server, error) {
	if commands == nil {
		return nil, errors.New("ipc server requires a command channel")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		commands: commands,
		logger:   logger,
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Serve starts accepting connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer c.Close()
				s.handleConn(c)
			}(conn)
		}
	}()
}

// Close stops the server, waits for in-flight connections, and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	log := s.logger.With(logging.String("conn_id", connID))

	_ = conn.SetReadDeadline(time.Now().Add(replyTimeout))
	reader := bufio.NewReaderSize(io.LimitReader(conn, maxRequestBytes), maxRequestBytes)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		log.Debug("client disconnected before sending a request", logging.Error(err))
		return
	}
	if len(line) >= maxRequestBytes && line[len(line)-1] != '\n' {
		log.Debug("oversized request", logging.Int("bytes", len(line)))
		s.writeResponse(conn, log, Errorf("bad request: exceeds %d bytes", maxRequestBytes))
		return
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		log.Debug("malformed request", logging.Error(err))
		s.writeResponse(conn, log, Errorf("bad request: %v", err))
		return
	}
	if !cmd.Valid() {
		log.Debug("unknown command", logging.String("command", string(cmd.Type)))
		s.writeResponse(conn, log, Errorf("bad request: unknown command %q", cmd.Type))
		return
	}

	log.Debug("command received", logging.String("command", string(cmd.Type)))

	env := Envelope{Cmd: cmd, Reply: make(chan Response, 1)}
	select {
	case s.commands <- env:
	case <-s.ctx.Done():
		s.writeResponse(conn, log, Errorf("daemon shutting down"))
		return
	}

	select {
	case resp := <-env.Reply:
		s.writeResponse(conn, log, resp)
	case <-time.After(replyTimeout):
		log.Warn("daemon did not reply in time", logging.String("command", string(cmd.Type)))
	case <-s.ctx.Done():
		// Shutdown raced the reply. A stop ack may already be buffered;
		// flush it so the client sees the response, not a bare EOF.
		select {
		case resp := <-env.Reply:
			s.writeResponse(conn, log, resp)
		default:
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, log *slog.Logger, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error("encode response", logging.Error(err))
		return
	}
	payload = append(payload, '\n')
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(payload); err != nil {
		// A disconnected client is not an error worth surfacing; the
		// daemon state is unaffected either way.
		log.Debug("write response", logging.Error(err))
	}
}
