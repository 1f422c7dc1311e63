package chargen

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleprotocols/simpled/pkg/server"
)

const firstLine = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefgh\r\n"

func TestLine(t *testing.T) {
	assert.Len(t, pattern, 95)

	assert.Equal(t, firstLine, string(Line(0)))

	// Each line shifts the window by one character.
	assert.Equal(t, byte('"'), Line(1)[0])
	assert.Equal(t, byte('#'), Line(2)[0])

	// The last cycle position starts with the trailing space.
	assert.Equal(t, byte(' '), Line(94)[0])

	// The cycle wraps.
	assert.Equal(t, Line(0), Line(95))
}

func TestLineLength(t *testing.T) {
	for offset := uint64(0); offset < 95; offset++ {
		require.Len(t, Line(offset), lineLen+2)
	}
}

func TestServeConnStreamsRotatingLines(t *testing.T) {
	srvSide, clientSide := net.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- New().ServeConn(context.Background(), server.NewConn(srvSide, 0, 0))
	}()

	buf := make([]byte, 3*(lineLen+2))
	_, err := io.ReadFull(clientSide, buf)
	require.NoError(t, err)

	want := append(append(Line(0), Line(1)...), Line(2)...)
	assert.Equal(t, want, buf)

	// Peer going away ends the stream.
	require.NoError(t, clientSide.Close())
	assert.Error(t, <-done)
}

func TestServeConnStopsOnCancel(t *testing.T) {
	srvSide, clientSide := net.Pipe()
	defer clientSide.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New().ServeConn(ctx, server.NewConn(srvSide, 0, 0))
	}()

	// Drain one line, cancel, then drain whatever is in flight.
	buf := make([]byte, lineLen+2)
	_, err := io.ReadFull(clientSide, buf)
	require.NoError(t, err)

	cancel()
	go io.Copy(io.Discard, clientSide)

	require.NoError(t, <-done)
}

func TestServePacketAdvancesSharedRotation(t *testing.T) {
	svc := New()

	first, ok := svc.ServePacket(context.Background(), nil)
	require.True(t, ok)
	second, ok := svc.ServePacket(context.Background(), nil)
	require.True(t, ok)

	assert.Equal(t, Line(0), first)
	assert.Equal(t, Line(1), second)
}
