// Package discard implements the Discard Protocol (RFC 863): all input is
// thrown away and nothing is ever sent back.
package discard

import (
	"context"
	"errors"
	"io"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/server"
)

// Service handles discard over both transports.
type Service struct{}

// New creates the discard service.
func New() *Service { return &Service{} }

// ServeConn reads and drops client bytes until the client closes.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	buf := make([]byte, 512)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			logger.Debug("discarding bytes", "count", n, "address", conn.RemoteAddr())
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// ServePacket drops the datagram without replying.
func (s *Service) ServePacket(_ context.Context, payload []byte) ([]byte, bool) {
	logger.Debug("discarding datagram", "count", len(payload))
	return nil, false
}
