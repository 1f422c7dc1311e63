package message

import (
	"bytes"
	"errors"
)

// MessageV1 is a parsed RFC 1159 message. Fields are raw bytes: version 1
// does not define an encoding.
type MessageV1 struct {
	Username []byte
	Terminal []byte
	Text     []byte
}

// ParseV1 parses the body of a version 1 message (the bytes after the 'A'
// version byte): username, terminal name and message text, each terminated
// by NUL, with nothing after the final terminator.
func ParseV1(body []byte) (*MessageV1, error) {
	if len(body) == 0 {
		return nil, errors.New("message is empty")
	}

	parts := bytes.Split(body, []byte{0})

	if len(parts) < 2 {
		return nil, errors.New("missing terminal name")
	}
	if len(parts) < 3 {
		return nil, errors.New("missing message")
	}
	if len(parts) < 4 {
		return nil, errors.New("no final null terminator")
	}
	if len(parts) > 4 || len(parts[3]) > 0 {
		return nil, errors.New("extra data after message")
	}

	return &MessageV1{
		Username: parts[0],
		Terminal: parts[1],
		Text:     parts[2],
	}, nil
}
