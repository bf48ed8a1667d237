package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cxdaemon/pkg/common"
)

// Server owns the listening socket, the per-connection loops and the
// shutdown path. Plain blocking I/O: one goroutine per connection, no
// request timeouts; a stalled client only ever blocks itself.
type Server struct {
	SocketPath string
	Handler    *RequestHandler

	// RequestRate/RequestBurst pace requests per connection. A zero
	// rate disables pacing.
	RequestRate  rate.Limit
	RequestBurst int

	// OnShutdown runs after the Shutdown response is flushed. The
	// default terminates the whole process; any client that can reach
	// the socket holds the kill switch.
	OnShutdown func()

	listener net.Listener
}

// Listen binds the unix socket, removing a stale socket file and
// creating parent directories first. A bind failure is fatal to the
// daemon.
func (s *Server) Listen() error {
	if _, err := os.Stat(s.SocketPath); err == nil {
		if err := os.Remove(s.SocketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.SocketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to bind to unix socket: %w", err)
	}
	s.listener = listener

	common.GetLoggerWith(common.LoggerNameIPCServer).
		Info("Daemon listening", zap.String("socket", s.SocketPath))
	return nil
}

// Serve accepts connections until the listener fails or is closed.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go s.handleConn(conn)
	}
}

// Close shuts the listener down; in-flight connections finish on
// their own.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	logger := common.GetLoggerWith(
		common.LoggerNameIPCServer,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	)

	// A panic in one in-flight operation must cost only this
	// connection, never the daemon.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Connection handler panicked", zap.Any("panic", r))
		}
	}()
	defer conn.Close()

	var limiter *rate.Limiter
	if s.RequestRate > 0 {
		limiter = rate.NewLimiter(s.RequestRate, s.RequestBurst)
	}

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Peer closed, or a frame without its trailing newline.
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			// Keep-alive no-op.
			continue
		}

		if limiter != nil {
			// Pacing blocks only this connection.
			_ = limiter.Wait(context.Background())
		}

		logger.Debug("Received request", zap.String("request", line))

		var response Response
		req, parseErr := ParseRequest([]byte(line))
		if parseErr != nil {
			response = ErrorResponse("Invalid request: %v", parseErr)
		} else {
			response = s.Handler.Handle(req)
		}

		encoded, err := response.ToJSON()
		if err != nil {
			errResp := ErrorResponse("Failed to encode response")
			encoded, _ = errResp.ToJSON()
		}
		if _, err := writer.WriteString(encoded + "\n"); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}

		logger.Debug("Sent response", zap.String("response", encoded))

		if parseErr == nil && req.Type == RequestShutdown {
			logger.Info("Shutdown requested, exiting")
			s.shutdown()
			return
		}
	}
}

func (s *Server) shutdown() {
	if s.OnShutdown != nil {
		s.OnShutdown()
		return
	}
	os.Exit(0)
}
