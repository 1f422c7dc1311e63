// Package activeusers implements the Active Users Protocol (RFC 866): on
// contact, the full user directory is written out and the conversation
// ends. Client input is ignored.
package activeusers

import (
	"bytes"
	"context"

	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

// Service handles active users over both transports.
type Service struct {
	store *staticdata.Store
}

// New creates the active users service backed by the given store.
func New(store *staticdata.Store) *Service {
	return &Service{store: store}
}

// Listing renders the user directory, one "username<TAB>full name" record
// per CRLF-terminated line, in directory order.
func (s *Service) Listing() []byte {
	var buf bytes.Buffer
	for _, u := range s.store.Users() {
		buf.WriteString(u.Username)
		buf.WriteByte('\t')
		buf.WriteString(u.FullName)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

// ServeConn writes the user listing and returns; the caller closes the
// connection.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	_, err := conn.Write(s.Listing())
	return err
}

// ServePacket replies with the same listing as one datagram.
func (s *Service) ServePacket(_ context.Context, _ []byte) ([]byte, bool) {
	return s.Listing(), true
}
