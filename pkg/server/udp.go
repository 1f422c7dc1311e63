package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/simpleprotocols/simpled/internal/logger"
)

// maxDatagramBytes is the read buffer for one UDP request. Datagrams longer
// than this are truncated by the kernel; every hosted protocol fits well
// within it.
const maxDatagramBytes = 1024

// UDPServer answers datagrams for one protocol on one port. Each datagram
// is handled on its own goroutine and yields at most one reply.
type UDPServer struct {
	name    string
	port    int
	opts    Options
	handler PacketHandler
	metrics MetricsRecorder

	conn   *net.UDPConn
	connMu sync.RWMutex

	shutdown     chan struct{}
	shutdownOnce sync.Once

	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	inflight sync.WaitGroup
}

// NewUDPServer creates a stopped UDP server for the named protocol.
func NewUDPServer(name string, port int, handler PacketHandler, opts Options, metrics MetricsRecorder) *UDPServer {
	shutdownCtx, cancel := context.WithCancel(context.Background())
	return &UDPServer{
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
func (s *UDPServer) Name() string { return s.name }

// Port returns the configured port.
func (s *UDPServer) Port() int { return s.port }

// Addr returns the bound socket address, or nil before Bind.
func (s *UDPServer) Addr() net.Addr {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Bind claims the UDP port. It must be called before Serve.
func (s *UDPServer) Bind() error {
	listenAddr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.port)
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s/udp address %s: %w", s.name, listenAddr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s/udp on %s: %w", s.name, listenAddr, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	logger.Info("listening", "protocol", s.name, "transport", "udp", "addr", conn.LocalAddr())
	return nil
}

// Close releases the bound port without serving.
func (s *UDPServer) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Serve reads datagrams until the context is cancelled, then waits for
// in-flight handlers up to the shutdown timeout.
func (s *UDPServer) Serve(ctx context.Context) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("%s/udp: Serve called before Bind", s.name)
	}

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	buf := make([]byte, maxDatagramBytes)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.shutdown:
				return s.drainInflight()
			default:
				logger.Debug("read error", "protocol", s.name, "error", err)
				continue
			}
		}

		if s.metrics != nil {
			s.metrics.RecordDatagram(s.name)
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		s.inflight.Add(1)
		go func(payload []byte, remote *net.UDPAddr) {
			defer s.inflight.Done()

			reply, ok := s.handler.ServePacket(s.shutdownCtx, payload)
			if !ok {
				return
			}
			if _, err := conn.WriteToUDP(reply, remote); err != nil {
				logger.Debug("reply error", "protocol", s.name, "address", remote, "error", err)
			}
		}(payload, remote)
	}
}

// initiateShutdown closes the socket and cancels in-flight handler
// contexts. Safe to call multiple times.
func (s *UDPServer) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated", "protocol", s.name, "transport", "udp")

		close(s.shutdown)

		s.connMu.Lock()
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				logger.Debug("error closing socket", "protocol", s.name, "error", err)
			}
		}
		s.connMu.Unlock()

		s.cancelRequests()
	})
}

// drainInflight waits for datagram handlers still running, bounded by the
// shutdown timeout. Replies racing the socket close are dropped, which is
// acceptable for datagram service.
func (s *UDPServer) drainInflight() error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete", "protocol", s.name, "transport", "udp")
		return nil
	case <-time.After(s.opts.ShutdownTimeout):
		return fmt.Errorf("%s/udp shutdown timeout: datagram handlers still running", s.name)
	}
}
