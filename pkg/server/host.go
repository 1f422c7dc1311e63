package server

import (
	"context"
	"errors"
	"net"

	"github.com/simpleprotocols/simpled/internal/logger"
)

// Listener is one bound socket serving one protocol over one transport.
// TCPServer and UDPServer implement it.
type Listener interface {
	// Name returns the protocol name.
	Name() string
	// Port returns the configured port.
	Port() int
	// Addr returns the bound address, or nil before Bind.
	Addr() net.Addr
	// Bind claims the port without serving.
	Bind() error
	// Close releases the port without serving.
	Close() error
	// Serve blocks until the context is cancelled and shutdown completes.
	Serve(ctx context.Context) error
}

// Host runs every enabled protocol listener as a single unit: all ports are
// bound before any traffic is served, and all listeners shut down together.
type Host struct {
	listeners []Listener
}

// NewHost builds the listener set from the protocol descriptors. Each
// descriptor contributes a TCP listener, a UDP listener, or both.
func NewHost(opts Options, descriptors []Descriptor, metrics MetricsRecorder) *Host {
	var listeners []Listener
	for _, d := range descriptors {
		if d.Stream != nil {
			listeners = append(listeners, NewTCPServer(d.Name, d.Port, d.Stream, opts, metrics))
		}
		if d.Packet != nil {
			listeners = append(listeners, NewUDPServer(d.Name, d.Port, d.Packet, opts, metrics))
		}
	}
	return &Host{listeners: listeners}
}

// Listeners returns the host's listeners in descriptor order.
func (h *Host) Listeners() []Listener { return h.listeners }

// Bind claims every port. On any failure the already-bound listeners are
// released and the error is returned; a host never serves a partial set.
func (h *Host) Bind() error {
	for i, l := range h.listeners {
		if err := l.Bind(); err != nil {
			for _, bound := range h.listeners[:i] {
				if cerr := bound.Close(); cerr != nil {
					logger.Debug("error releasing listener", "protocol", bound.Name(), "error", cerr)
				}
			}
			return err
		}
	}
	return nil
}

// Serve runs every bound listener until the context is cancelled, then
// waits for all of them to finish shutting down. A listener failing early
// takes the whole host down.
//
// Bind must have been called first.
func (h *Host) Serve(ctx context.Context) error {
	if len(h.listeners) == 0 {
		return errors.New("no protocols enabled")
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(h.listeners))
	for _, l := range h.listeners {
		go func(l Listener) {
			logger.Info("starting listener", "protocol", l.Name(), "port", l.Port())
			err := l.Serve(serveCtx)
			if err != nil && serveCtx.Err() == nil {
				logger.Error("listener failed", "protocol", l.Name(), "error", err)
			}
			// Any listener exiting stops the rest.
			cancel()
			errCh <- err
		}(l)
	}

	var errs []error
	for range h.listeners {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Run binds and serves in one call.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Bind(); err != nil {
		return err
	}
	return h.Serve(ctx)
}
