package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simpleprotocols/simpled/internal/logger"
)

// TCPServer runs the accept loop for one protocol on one port.
//
// The lifecycle is split in two: Bind claims the port, Serve accepts until
// shutdown. The host binds every listener before serving any of them so a
// port conflict surfaces before the first byte is handled.
//
// Thread safety: all exported methods are safe for concurrent use. Shutdown
// is idempotent via sync.Once.
type TCPServer struct {
	name    string
	port    int
	opts    Options
	handler StreamHandler
	metrics MetricsRecorder

	listener   net.Listener
	listenerMu sync.RWMutex

	// shutdown is closed by initiateShutdown, watched by the accept loop.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// shutdownCtx is passed to handlers; cancelled during shutdown.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// conns maps remote address to the raw net.Conn for interruption and
	// forced closure.
	conns sync.Map
}

// NewTCPServer creates a stopped TCP server for the named protocol.
func NewTCPServer(name string, port int, handler StreamHandler, opts Options, metrics MetricsRecorder) *TCPServer {
	shutdownCtx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		name:           name,
		port:           port,
		opts:           opts,
		handler:        handler,
		metrics:        metrics,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancel,
	}
}

// Name returns the protocol name.
func (s *TCPServer) Name() string { return s.name }

// Port returns the configured port.
func (s *TCPServer) Port() int { return s.port }

// Addr returns the bound listener address, or nil before Bind.
func (s *TCPServer) Addr() net.Addr {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Bind claims the TCP port. It must be called before Serve.
func (s *TCPServer) Bind() error {
	listenAddr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s/tcp on %s: %w", s.name, listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	logger.Info("listening", "protocol", s.name, "transport", "tcp", "addr", listener.Addr())
	return nil
}

// Close releases the bound port without serving. Used by the host when a
// later bind fails and the already-bound listeners must be released.
func (s *TCPServer) Close() error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Serve accepts connections until the context is cancelled, then drains
// active connections within the shutdown timeout and force-closes the rest.
//
// Returns nil on a clean drain, an error when connections had to be
// force-closed or the listener failed.
func (s *TCPServer) Serve(ctx context.Context) error {
	s.listenerMu.RLock()
	listener := s.listener
	s.listenerMu.RUnlock()
	if listener == nil {
		return fmt.Errorf("%s/tcp: Serve called before Bind", s.name)
	}

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("accept error", "protocol", s.name, "error", err)
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("failed to set TCP_NODELAY", "protocol", s.name, "error", err)
			}
		}

		s.activeConns.Add(1)
		active := s.connCount.Add(1)

		addr := tcpConn.RemoteAddr().String()
		s.conns.Store(addr, tcpConn)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted(s.name)
			s.metrics.SetActiveConnections(s.name, active)
		}

		logger.Debug("connection accepted", "protocol", s.name, "address", addr, "active", active)

		go s.serveConn(addr, tcpConn)
	}
}

// serveConn runs the protocol handler for one connection and cleans up
// afterwards. An input-cap violation resets the connection via SO_LINGER 0
// so the client sees RST rather than a clean close.
func (s *TCPServer) serveConn(addr string, raw net.Conn) {
	defer func() {
		s.conns.Delete(addr)
		s.activeConns.Done()
		active := s.connCount.Add(-1)

		if s.metrics != nil {
			s.metrics.RecordConnectionClosed(s.name)
			s.metrics.SetActiveConnections(s.name, active)
		}

		logger.Debug("connection closed", "protocol", s.name, "address", addr, "active", active)
	}()

	conn := NewConn(raw, s.opts.MaxInputBytes, s.opts.IdleTimeout)
	err := s.handler.ServeConn(s.shutdownCtx, conn)

	switch {
	case err == nil, errors.Is(err, io.EOF):
	case errors.Is(err, ErrInputLimit):
		logger.Warn("input limit exceeded, resetting connection",
			"protocol", s.name, "address", addr, "bytes", conn.BytesRead())
		if s.metrics != nil {
			s.metrics.RecordInputLimitExceeded(s.name)
		}
		if tcp, ok := raw.(*net.TCPConn); ok {
			if lerr := tcp.SetLinger(0); lerr != nil {
				logger.Debug("failed to set SO_LINGER", "protocol", s.name, "error", lerr)
			}
		}
	default:
		logger.Debug("connection error", "protocol", s.name, "address", addr, "error", err)
	}

	if cerr := raw.Close(); cerr != nil {
		logger.Debug("error closing connection", "protocol", s.name, "address", addr, "error", cerr)
	}
}

// initiateShutdown closes the listener, interrupts blocking reads and
// cancels in-flight handler contexts. Safe to call multiple times.
func (s *TCPServer) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated", "protocol", s.name, "transport", "tcp")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("error closing listener", "protocol", s.name, "error", err)
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads sets a short deadline on every active connection
// so handlers blocked in Read wake up and observe the cancelled context.
func (s *TCPServer) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	s.conns.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("error setting shutdown deadline", "protocol", s.name, "address", key, "error", err)
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections up to the shutdown timeout,
// then force-closes whatever is left.
func (s *TCPServer) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("draining connections", "protocol", s.name, "active", active, "timeout", s.opts.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete", "protocol", s.name)
		return nil

	case <-time.After(s.opts.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("shutdown timeout exceeded, forcing closure", "protocol", s.name, "active", remaining)
		s.forceCloseConnections()
		return fmt.Errorf("%s/tcp shutdown timeout: %d connections force-closed", s.name, remaining)
	}
}

// forceCloseConnections closes every connection still in the registry.
func (s *TCPServer) forceCloseConnections() {
	closed := 0
	s.conns.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("error force-closing connection", "protocol", s.name, "address", key, "error", err)
		} else {
			closed++
			if s.metrics != nil {
				s.metrics.RecordConnectionForceClosed(s.name)
			}
		}
		return true
	})

	if closed > 0 {
		logger.Info("force-closed connections", "protocol", s.name, "count", closed)
	}
}

// ActiveConnections returns the number of connections currently being served.
func (s *TCPServer) ActiveConnections() int32 {
	return s.connCount.Load()
}
