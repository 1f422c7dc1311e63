// Package timeproto implements the Time Protocol (RFC 868): the current
// time as seconds since 1900-01-01 UTC, exactly four big-endian bytes.
package timeproto

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/simpleprotocols/simpled/pkg/server"
)

// unixEpochOffset is the number of seconds between the RFC 868 epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const unixEpochOffset = 2_208_988_800

// Service handles time over both transports.
type Service struct {
	// Now is the time source, overridable in tests.
	Now func() time.Time
}

// New creates the time service using the wall clock.
func New() *Service {
	return &Service{Now: time.Now}
}

// Timestamp renders the current time in the RFC 868 wire format. The value
// wraps in 2036; so does the protocol.
func (s *Service) Timestamp() []byte {
	seconds := uint32(s.Now().Unix() + unixEpochOffset)

	var out [4]byte
	binary.BigEndian.PutUint32(out[:], seconds)
	return out[:]
}

// ServeConn writes the four timestamp bytes and returns.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	_, err := conn.Write(s.Timestamp())
	return err
}

// ServePacket replies with the four timestamp bytes as one datagram.
func (s *Service) ServePacket(_ context.Context, _ []byte) ([]byte, bool) {
	return s.Timestamp(), true
}
