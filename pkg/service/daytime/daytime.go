// Package daytime implements the Daytime Protocol (RFC 867).
//
// The RFC leaves the line format open; this implementation commits to
// RFC 3339 in UTC with no trailing line break.
package daytime

import (
	"context"
	"time"

	"github.com/simpleprotocols/simpled/pkg/server"
)

// Service handles daytime over both transports.
type Service struct {
	// Now is the time source, overridable in tests.
	Now func() time.Time
}

// New creates the daytime service using the wall clock.
func New() *Service {
	return &Service{Now: time.Now}
}

// Line renders the current date and time.
func (s *Service) Line() []byte {
	return []byte(s.Now().UTC().Format(time.RFC3339))
}

// ServeConn writes the current date and time and returns.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	_, err := conn.Write(s.Line())
	return err
}

// ServePacket replies with the current date and time as one datagram.
func (s *Service) ServePacket(_ context.Context, _ []byte) ([]byte, bool) {
	return s.Line(), true
}
