package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/rs/zerolog"
)

// Server handles IPC communication with clients
type Server struct {
	socketPath string
	sys        *bgm.System
	logger     zerolog.Logger
	listener   net.Listener
	mu         sync.Mutex
	clients    map[net.Conn]struct{}
	ready      chan struct{}
}

// NewServer creates a new IPC server
func NewServer(socketPath string, sys *bgm.System, logger zerolog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		sys:        sys,
		logger:     logger.With().Str("component", "ipc").Logger(),
		clients:    make(map[net.Conn]struct{}),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the socket accepts connections
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Start listens on the socket until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	s.logger.Info().Str("socket", s.socketPath).Msg("Creating socket")

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info().Msg("Server listening, waiting for connections...")
	close(s.ready)

	go s.acceptLoop(ctx)

	<-ctx.Done()

	s.logger.Info().Msg("Shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	s.logger.Info().Int("clients", clientCount).Msg("Closed client connections")

	listener.Close()
	os.RemoveAll(s.socketPath)

	s.logger.Info().Msg("Server stopped")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("Accept error")
			continue
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		clientCount := len(s.clients)
		s.mu.Unlock()

		s.logger.Debug().Int("clients", clientCount).Msg("New client connection")

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		s.logger.Debug().Int("clients", clientCount).Msg("Client disconnected")
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Read line (newline-delimited JSON)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				s.logger.Warn().Err(err).Msg("Read error")
			}
			return
		}

		req, err := DecodeRequest(line)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Invalid request format")
			if err := s.send(conn, NewErrorResponse("invalid request format")); err != nil {
				return
			}
			continue
		}

		start := time.Now()
		logRequest(s.logger, req)
		resp := s.handleRequest(req)
		logResponse(s.logger, resp, time.Since(start))

		if err := s.send(conn, resp); err != nil {
			s.logger.Warn().Err(err).Msg("Send error")
			return
		}
	}
}

func (s *Server) send(conn net.Conn, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	data = append(data, '\n')
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Write(data)
	return err
}
