// Package echo implements the Echo Protocol (RFC 862): every byte received
// is sent back unchanged.
package echo

import (
	"context"
	"errors"
	"io"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/server"
)

// Service handles echo over both transports.
type Service struct{}

// New creates the echo service.
func New() *Service { return &Service{} }

// ServeConn copies client bytes back in order until the client closes.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	buf := make([]byte, 512)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			logger.Debug("echoing bytes", "count", n, "address", conn.RemoteAddr())
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// ServePacket replies with the datagram payload unchanged.
func (s *Service) ServePacket(_ context.Context, payload []byte) ([]byte, bool) {
	logger.Debug("echoing datagram", "count", len(payload))
	return payload, true
}
