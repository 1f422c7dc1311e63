package discard

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleprotocols/simpled/pkg/server"
)

func TestServeConnNeverReplies(t *testing.T) {
	srvSide, clientSide := net.Pipe()
	defer clientSide.Close()

	done := make(chan error, 1)
	go func() {
		done <- New().ServeConn(context.Background(), server.NewConn(srvSide, 0, 0))
	}()

	_, err := clientSide.Write([]byte("into the void"))
	require.NoError(t, err)

	require.NoError(t, clientSide.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 16)
	_, err = clientSide.Read(buf)
	assert.Error(t, err, "discard must stay silent")

	require.NoError(t, clientSide.Close())
	require.NoError(t, <-done)
}

func TestServePacket(t *testing.T) {
	reply, ok := New().ServePacket(context.Background(), []byte("dropped"))
	assert.False(t, ok)
	assert.Nil(t, reply)
}
