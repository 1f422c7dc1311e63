package message

import (
	"bytes"
	"errors"
)

// MessageV2 is a parsed RFC 1312 message. Fields are decoded from
// ISO 8859-1 as the RFC prescribes.
type MessageV2 struct {
	Recipient  string
	RecipTerm  string
	Text       string
	Sender     string
	SenderTerm string
	Cookie     string
	Signature  string
}

// v2FieldNames drive the missing-field errors, in wire order.
var v2FieldNames = []string{
	"recipient",
	"recipient terminal name",
	"message",
	"sender",
	"sender terminal",
	"cookie",
	"signature",
}

// ParseV2 parses the body of a version 2 message (the bytes after the 'B'
// version byte): seven NUL-terminated ISO 8859-1 fields with nothing after
// the final terminator.
func ParseV2(body []byte) (*MessageV2, error) {
	parts := bytes.Split(body, []byte{0})

	for i, name := range v2FieldNames {
		if len(parts) < i+1 {
			return nil, errors.New("missing " + name)
		}
	}
	if len(parts) < len(v2FieldNames)+1 {
		return nil, errors.New("no final null terminator")
	}
	if len(parts) > len(v2FieldNames)+1 || len(parts[len(v2FieldNames)]) > 0 {
		return nil, errors.New("extra data after message")
	}

	return &MessageV2{
		Recipient:  decodeLatin1(parts[0]),
		RecipTerm:  decodeLatin1(parts[1]),
		Text:       decodeLatin1(parts[2]),
		Sender:     decodeLatin1(parts[3]),
		SenderTerm: decodeLatin1(parts[4]),
		Cookie:     decodeLatin1(parts[5]),
		Signature:  decodeLatin1(parts[6]),
	}, nil
}

// decodeLatin1 converts ISO 8859-1 bytes to a string. Every byte maps to
// the code point of the same value, so decoding cannot fail.
func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
