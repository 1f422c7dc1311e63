// Package message implements the Message Send Protocol on its shared port:
// version 1 (RFC 1159) and version 2 (RFC 1312), discriminated by the first
// byte of each message ('A' or 'B').
//
// The server only receives and logs messages; there is no local delivery.
// TCP only: the datagram variant predates the spec this host follows.
package message

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/server"
)

// Version bytes on the wire.
const (
	VersionA = 'A'
	VersionB = 'B'
)

// v1FieldCount is the number of NUL-terminated fields in a version 1
// message; version 2 counts follow v2FieldNames. Each field carries its own
// terminator, so the count also frames the message body.
const v1FieldCount = 3

// Service handles message send over TCP.
type Service struct{}

// New creates the message send service.
func New() *Service { return &Service{} }

// ServeConn serves messages until the client closes. Multiple messages can
// be sent over the same channel; each one is framed by its version byte and
// field terminators and acknowledged as soon as it is complete, so a client
// holding the connection open gets its status reply immediately.
func (s *Service) ServeConn(_ context.Context, conn *server.Conn) error {
	r := bufio.NewReader(conn)
	addr := conn.RemoteAddr().String()

	for served := false; ; served = true {
		version, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			if !served {
				logger.Warn("empty message request", "address", addr)
			}
			return nil
		}
		if err != nil {
			return err
		}

		var fields int
		switch version {
		case VersionA:
			fields = v1FieldCount
		case VersionB:
			fields = len(v2FieldNames)
		default:
			// Unknown framing, so the channel cannot resync; reply and
			// close.
			logger.Warn("unrecognized protocol version",
				"version", logger.FormatBytes([]byte{version}), "address", addr)
			_, werr := conn.Write(failureReplyText("unrecognized protocol version"))
			return werr
		}

		body, rerr := readBody(r, fields)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return rerr
		}

		if reply := s.dispatch(version, body, addr); reply != nil {
			if _, werr := conn.Write(reply); werr != nil {
				return werr
			}
		}

		if rerr != nil {
			return nil
		}
	}
}

// readBody accumulates one message body: everything up to and including the
// given number of NUL terminators. A body cut short by EOF is returned as-is
// for the parser to diagnose.
func readBody(r *bufio.Reader, fields int) ([]byte, error) {
	var body []byte
	for seen := 0; seen < fields; seen++ {
		chunk, err := r.ReadBytes(0)
		body = append(body, chunk...)
		if err != nil {
			return body, err
		}
	}
	return body, nil
}

// dispatch parses one message body and returns the reply bytes, or nil when
// the protocol version calls for silence.
func (s *Service) dispatch(version byte, body []byte, addr string) []byte {
	if version == VersionA {
		msg, err := ParseV1(body)
		if err != nil {
			logger.Warn("malformed message", "version", "A", "address", addr, "error", err)
			return nil
		}
		logger.Info("message received", "version", "A",
			"to", logger.FormatBytes(msg.Username),
			"terminal", logger.FormatBytes(msg.Terminal),
			"text", logger.FormatBytes(msg.Text))
		return nil
	}

	msg, err := ParseV2(body)
	if err != nil {
		logger.Warn("malformed message", "version", "B", "address", addr, "error", err)
		return failureReply(err)
	}
	logger.Info("message received", "version", "B",
		"to", msg.Recipient, "terminal", msg.RecipTerm,
		"text", msg.Text, "from", msg.Sender,
		"sender_terminal", msg.SenderTerm,
		"cookie", msg.Cookie, "signature", msg.Signature)
	return okReply
}

// okReply is the RFC 1312 success status.
var okReply = []byte("+\x00")

func failureReply(err error) []byte {
	return failureReplyText(err.Error())
}

// failureReplyText builds the RFC 1312 failure status: '-', the reason,
// and a terminating NUL.
func failureReplyText(reason string) []byte {
	reply := make([]byte, 0, len(reason)+2)
	reply = append(reply, '-')
	reply = append(reply, reason...)
	return append(reply, 0)
}
