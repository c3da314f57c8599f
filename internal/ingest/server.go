// Package ingest implements the Ingestion Core: a Unix-domain socket
// server that accepts newline-delimited JSON CapturePayloads, fingerprints
// and chunks them, and writes deduplicated documents to the store.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Config controls the socket server's transport behavior.
type Config struct {
	SocketPath   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the default transport timeouts.
func DefaultConfig(socketPath string) Config {
	return Config{SocketPath: socketPath, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
}

// Server listens on a Unix-domain socket and dispatches each request line
// to a Processor. Connections are handled concurrently; one connection may
// carry many request/response pairs.
type Server struct {
	cfg   Config
	proc  *Processor
	ln    net.Listener
	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer builds a Server around the given Processor.
func NewServer(cfg Config, proc *Processor) *Server {
	return &Server{cfg: cfg, proc: proc, conns: make(map[net.Conn]struct{})}
}

// Listen binds the Unix-domain socket, removing any stale socket file left
// behind by a previous, uncleanly terminated process.
func (s *Server) Listen() error {
	if err := removeStaleSocket(s.cfg.SocketPath); err != nil {
		return fmt.Errorf("ingest: removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("ingest: listen on %s: %w", s.cfg.SocketPath, err)
	}
	s.ln = ln
	return nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. Each connection is handled in its own goroutine; a panic in one
// connection's handler is recovered and logged, never crashing the server.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || isClosedListenerErr(err) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("ingest: accept: %w", err)
		}

		s.trackConn(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.trackConn(conn, false)
			s.handleConn(conn)
		}()
	}
}

func isClosedListenerErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Close stops accepting new connections and closes every connection
// currently tracked. It does not wait for in-flight requests to finish;
// callers that need that guarantee should call Serve's ctx cancellation
// and rely on its wg.Wait before returning.
func (s *Server) Close() error {
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

// SocketPath returns the path the server is (or will be) listening on.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("ingest: recovered from panic in connection handler")
		}
	}()

	reader := bufio.NewReaderSize(conn, 64*1024)

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if line == "" {
				return
			}
			// Fall through to process the final, unterminated line before
			// giving up on the connection.
		}

		var payload domain.CapturePayload
		resp := func() domain.IngestResponse {
			if err := json.Unmarshal([]byte(line), &payload); err != nil {
				return domain.IngestResponse{Status: "error", Action: domain.ActionFailed, Message: "malformed request: " + err.Error()}
			}
			return s.proc.Process(payload)
		}()

		if writeErr := s.writeResponse(conn, resp); writeErr != nil {
			log.Warn().Err(writeErr).Msg("ingest: writing response")
			return
		}

		if err != nil {
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp domain.IngestResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("ingest: marshal response: %w", err)
	}
	body = append(body, '\n')

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	_, err = conn.Write(body)
	return err
}
