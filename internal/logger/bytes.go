package logger

import (
	"fmt"
	"strings"
)

// FormatBytes renders untrusted payload bytes as a printable ASCII string for
// log output. Control characters and non-ASCII bytes are escaped so a hostile
// client cannot inject terminal escapes or newlines into the log stream.
func FormatBytes(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))

	for _, c := range b {
		switch c {
		case 0:
			sb.WriteString(`\0`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if c >= 0x20 && c <= 0x7e {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}

	return sb.String()
}
