// Package gopher implements the Internet Gopher Protocol (RFC 1436) over
// the embedded content tree. TCP only.
//
// One selector line per connection: directories produce a menu listing,
// files produce their raw content, unresolved selectors produce an
// error-type item line. Every response ends with the ".\r\n" terminator.
package gopher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

// Gopher item types emitted by this server.
const (
	ItemFile      = '0'
	ItemDirectory = '1'
	ItemError     = '3'
)

// maxSelectorBytes bounds the request line. RFC 1436 keeps selectors well
// under this.
const maxSelectorBytes = 512

// Service handles gopher over TCP.
type Service struct {
	store *staticdata.Store

	// hostname and port are written into every menu item so clients can
	// follow the links back to this server.
	hostname string
	port     int
}

// New creates the gopher service publishing the store's content tree.
func New(store *staticdata.Store, hostname string, port int) *Service {
	return &Service{store: store, hostname: hostname, port: port}
}

// ServeConn reads one selector line, writes the response and returns.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	line, err := readSelectorLine(conn)
	if err != nil {
		return err
	}

	selector := parseSelector(line)
	logger.Debug("gopher request", "selector", selector, "address", conn.RemoteAddr())

	_, err = conn.Write(s.respond(selector))
	return err
}

// readSelectorLine accumulates input until a CRLF arrives, the client
// half-closes, or the line budget runs out.
func readSelectorLine(conn *server.Conn) ([]byte, error) {
	buf := make([]byte, maxSelectorBytes)
	n := 0

	for !bytes.HasSuffix(buf[:n], []byte("\r\n")) && n < len(buf) {
		read, err := conn.Read(buf[n:])
		n += read
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return buf[:n], nil
}

// parseSelector extracts the selector from the request line: everything up
// to the first tab (Gopher+ clients append extra fields) or the CRLF.
// The empty selector and "/" both mean the root.
func parseSelector(line []byte) string {
	if i := bytes.IndexByte(line, '\t'); i >= 0 {
		line = line[:i]
	}
	if i := bytes.Index(line, []byte("\r\n")); i >= 0 {
		line = line[:i]
	}

	selector := string(line)
	if selector == "/" {
		return ""
	}
	return selector
}

// respond resolves the selector and renders the full response including the
// terminator line.
func (s *Service) respond(selector string) []byte {
	var node *staticdata.Node
	if selector == "" {
		node = s.store.Root()
	} else {
		var err error
		node, err = s.store.Lookup(selector)
		if err != nil {
			logger.Debug("gopher selector unresolved", "selector", selector, "error", err)
			return s.notFound()
		}
	}

	if node.IsDir() {
		return s.listing(selector, node)
	}

	var buf bytes.Buffer
	buf.Write(node.Content())
	buf.WriteString(".\r\n")
	return buf.Bytes()
}

// listing renders one menu line per child, then the terminator.
func (s *Service) listing(selector string, dir *staticdata.Node) []byte {
	base := strings.TrimSuffix(selector, "/")

	var buf bytes.Buffer
	for _, child := range dir.Children() {
		kind := byte(ItemFile)
		if child.IsDir() {
			kind = ItemDirectory
		}
		s.writeItem(&buf, kind, child.Name(), base+"/"+child.Name())
	}
	buf.WriteString(".\r\n")
	return buf.Bytes()
}

// notFound renders the standardized error listing for an unresolved
// selector.
func (s *Service) notFound() []byte {
	var buf bytes.Buffer
	s.writeItem(&buf, ItemError, "not found", "")
	buf.WriteString(".\r\n")
	return buf.Bytes()
}

// writeItem renders one menu line:
// <type><display>\t<selector>\t<host>\t<port>\r\n.
func (s *Service) writeItem(buf *bytes.Buffer, kind byte, name, selector string) {
	buf.WriteByte(kind)
	fmt.Fprintf(buf, "%s\t%s\t%s\t%d\r\n", name, selector, s.hostname, s.port)
}
