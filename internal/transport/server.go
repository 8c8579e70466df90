// Package transport implements the TCP listener and per-connection state
// machine: accept loop, reader loop, writer pump, and subscription drains.
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"odin-broker/internal/dispatch"
	"odin-broker/internal/metrics"
)

// Server binds a TCP port and spawns one connection handler per accepted
// socket.
type Server struct {
	port        uint16
	idleTimeout time.Duration
	reg         dispatch.Registry
	logger      *zap.Logger
	metrics     *metrics.Registry

	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds a Server. reg is the dispatcher's Registry seam so tests
// can inject a fake instead of a real *topic.Registry.
func NewServer(port uint16, idleTimeout time.Duration, reg dispatch.Registry, logger *zap.Logger, m *metrics.Registry) *Server {
	return &Server{
		port:        port,
		idleTimeout: idleTimeout,
		reg:         reg,
		logger:      logger,
		metrics:     m,
	}
}

// Start binds the listener and begins the accept loop in the background.
// It returns once the listener is bound; a fatal accept error is logged
// and simply ends the accept loop without notifying the caller.
func (s *Server) Start() error {
	if s.listener != nil {
		return errors.New("transport: already started")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.logger.Info("broker listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	return nil
}

// Addr returns the bound listener address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, which unblocks the accept loop, and waits for
// the accept loop and every connection handler to return. Existing
// connections are not forcibly closed; each one drains to completion on
// its own reader/writer lifecycle, so Stop blocks until they have all
// ended.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", zap.Error(err))
			if s.metrics != nil {
				s.metrics.Messages.AcceptErrors.Inc()
			}
			return
		}

		if s.metrics != nil {
			s.metrics.Connections.ActiveConnections.Inc()
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer func() {
				if s.metrics != nil {
					s.metrics.Connections.ActiveConnections.Dec()
				}
			}()
			conn := newConnection(c, s.reg, s.logger, s.metrics, s.idleTimeout)
			conn.serve()
		}(conn)
	}
}
