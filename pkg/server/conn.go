package server

import (
	"errors"
	"net"
	"time"
)

// ErrInputLimit is returned by Conn.Read once a client has sent more than
// the configured input cap. The TCP listener translates it into a
// connection reset.
var ErrInputLimit = errors.New("input limit exceeded")

// Conn wraps an accepted TCP connection with the defensive bounds every
// protocol shares: a cumulative cap on bytes read and an idle deadline
// refreshed on each read and write.
//
// Conn is used by a single handler goroutine and is not safe for
// concurrent use.
type Conn struct {
	net.Conn

	limit     int64
	bytesRead int64
	idle      time.Duration
}

// NewConn wraps raw with the given input cap and idle timeout. Zero
// disables either bound.
func NewConn(raw net.Conn, maxInput int64, idle time.Duration) *Conn {
	return &Conn{Conn: raw, limit: maxInput, idle: idle}
}

// Read reads from the connection, enforcing the input cap and refreshing
// the idle deadline. Once the cumulative count passes the cap it returns
// ErrInputLimit; bytes up to the cap are still delivered.
func (c *Conn) Read(p []byte) (int, error) {
	if c.limit > 0 {
		remaining := c.limit - c.bytesRead
		if remaining < 0 {
			return 0, ErrInputLimit
		}
		// Leave one extra byte of room so overrun is observable.
		if int64(len(p)) > remaining+1 {
			p = p[:remaining+1]
		}
	}

	if c.idle > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
			return 0, err
		}
	}

	n, err := c.Conn.Read(p)
	c.bytesRead += int64(n)

	if c.limit > 0 && c.bytesRead > c.limit {
		return n, ErrInputLimit
	}
	return n, err
}

// Write writes to the connection, refreshing the idle deadline.
func (c *Conn) Write(p []byte) (int, error) {
	if c.idle > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.idle)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// BytesRead returns the cumulative number of bytes read so far.
func (c *Conn) BytesRead() int64 { return c.bytesRead }
