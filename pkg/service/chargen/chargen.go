// Package chargen implements the Character Generator Protocol (RFC 864).
//
// Output is built from a fixed cycle of the 95 printable ASCII characters.
// Each line is a 72-character window into the cycle, CRLF-terminated; the
// window advances by one character per line. A TCP connection streams lines
// until the peer closes; each UDP datagram gets exactly one line, with the
// rotation shared across datagrams process-wide.
package chargen

import (
	"context"
	"sync/atomic"

	"github.com/simpleprotocols/simpled/pkg/server"
)

const (
	// lineLen is the character count of one output line, excluding CRLF.
	lineLen = 72

	// pattern is the full printable ASCII cycle: 0x21 through 0x7E, then
	// space. 95 characters.
	pattern = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~ "
)

// doubled lets any window be taken as one contiguous slice.
var doubled = pattern + pattern

// Line returns the CRLF-terminated line whose window starts at offset
// (modulo the cycle length).
func Line(offset uint64) []byte {
	start := offset % uint64(len(pattern))

	out := make([]byte, 0, lineLen+2)
	out = append(out, doubled[start:start+lineLen]...)
	return append(out, '\r', '\n')
}

// Service handles chargen over both transports.
type Service struct {
	// udpOffset is the rotation state shared by all datagrams.
	udpOffset atomic.Uint64
}

// New creates the chargen service.
func New() *Service { return &Service{} }

// ServeConn streams the rotating pattern until the write fails (peer gone)
// or the context is cancelled. It never stops on its own.
func (s *Service) ServeConn(ctx context.Context, conn *server.Conn) error {
	for offset := uint64(0); ; offset++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := conn.Write(Line(offset)); err != nil {
			return err
		}
	}
}

// ServePacket replies with one pattern line and advances the shared
// rotation for the next datagram.
func (s *Service) ServePacket(_ context.Context, _ []byte) ([]byte, bool) {
	offset := s.udpOffset.Add(1) - 1
	return Line(offset), true
}
