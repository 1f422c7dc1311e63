// Package qotd implements the Quote of the Day Protocol (RFC 865): one
// randomly selected quote per contact, CRLF-terminated, at most 512 bytes.
package qotd

import (
	"context"

	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

// Service handles QOTD over both transports.
type Service struct {
	store *staticdata.Store
	rand  staticdata.Rand
}

// New creates the QOTD service backed by the given store and random source.
func New(store *staticdata.Store, rand staticdata.Rand) *Service {
	return &Service{store: store, rand: rand}
}

// Quote picks a random quote and terminates it. The store guarantees that
// quote plus terminator fits 512 bytes.
func (s *Service) Quote() []byte {
	q := s.store.RandomQuote(s.rand)
	return append([]byte(q), '\r', '\n')
}

// ServeConn writes one quote and returns.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	_, err := conn.Write(s.Quote())
	return err
}

// ServePacket replies with one quote as one datagram.
func (s *Service) ServePacket(_ context.Context, _ []byte) ([]byte, bool) {
	return s.Quote(), true
}
