// Package server provides the shared TCP and UDP lifecycle for every hosted
// protocol: listener management, per-connection input bounds, graceful
// shutdown with forced closure, and the host that runs all listeners as one
// unit.
package server

import (
	"context"
	"time"
)

// StreamHandler serves one accepted TCP connection. Implementations block
// until the conversation is over or the context is cancelled; the caller
// owns the connection and closes it when ServeConn returns.
//
// Returning ErrInputLimit (usually surfaced through Conn.Read) makes the
// caller reset the connection instead of closing it cleanly.
type StreamHandler interface {
	ServeConn(ctx context.Context, conn *Conn) error
}

// StreamHandlerFunc adapts a function to the StreamHandler interface.
type StreamHandlerFunc func(ctx context.Context, conn *Conn) error

func (f StreamHandlerFunc) ServeConn(ctx context.Context, conn *Conn) error {
	return f(ctx, conn)
}

// PacketHandler serves one UDP datagram. The payload is owned by the
// handler. The reply is sent back to the datagram's source address when
// ok is true; at most one reply is ever sent per datagram.
type PacketHandler interface {
	ServePacket(ctx context.Context, payload []byte) (reply []byte, ok bool)
}

// PacketHandlerFunc adapts a function to the PacketHandler interface.
type PacketHandlerFunc func(ctx context.Context, payload []byte) ([]byte, bool)

func (f PacketHandlerFunc) ServePacket(ctx context.Context, payload []byte) ([]byte, bool) {
	return f(ctx, payload)
}

// Descriptor declares one protocol to the host: its name, the resolved port
// and the handler for each transport it speaks. A nil Stream or Packet
// means the protocol does not use that transport.
type Descriptor struct {
	Name   string
	Port   int
	Stream StreamHandler
	Packet PacketHandler
}

// MetricsRecorder receives connection lifecycle events from the listeners.
// A nil recorder disables metrics with no overhead.
type MetricsRecorder interface {
	RecordConnectionAccepted(protocol string)
	RecordConnectionClosed(protocol string)
	RecordConnectionForceClosed(protocol string)
	RecordInputLimitExceeded(protocol string)
	RecordDatagram(protocol string)
	SetActiveConnections(protocol string, count int32)
}

// Options holds the settings shared by every listener the host runs.
type Options struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string

	// MaxInputBytes caps the bytes read from a single TCP connection.
	// A client exceeding it gets the connection reset. 0 disables the cap.
	MaxInputBytes int64

	// IdleTimeout closes TCP connections with no traffic for this long.
	// 0 disables the idle check.
	IdleTimeout time.Duration

	// ShutdownTimeout is how long graceful shutdown waits for live
	// connections before force-closing them.
	ShutdownTimeout time.Duration
}
