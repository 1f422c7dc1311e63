package gopher

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := staticdata.Load()
	require.NoError(t, err)
	return New(store, "gopher.example.org", 70)
}

// request runs one selector line through ServeConn over a real TCP pair.
func request(t *testing.T, svc *Service, line string) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	done := make(chan error, 1)
	go func() {
		raw, err := listener.Accept()
		if err != nil {
			done <- err
			return
		}
		defer raw.Close()
		done <- svc.ServeConn(context.Background(), server.NewConn(raw, 0, 0))
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte(line))
	require.NoError(t, err)
	require.NoError(t, client.(*net.TCPConn).CloseWrite())

	reply, err := io.ReadAll(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	return string(reply)
}

func TestParseSelector(t *testing.T) {
	cases := map[string]string{
		"\r\n":                  "",
		"/\r\n":                 "",
		"/docs\r\n":             "/docs",
		"/docs\textra\tstuff\r\n": "/docs",
		"/about.txt":            "/about.txt",
	}

	for line, want := range cases {
		assert.Equal(t, want, parseSelector([]byte(line)), "line %q", line)
	}
}

func TestRootListing(t *testing.T) {
	reply := request(t, newService(t), "\r\n")

	assert.True(t, strings.HasSuffix(reply, ".\r\n"))
	assert.Contains(t, reply, "0about.txt\t/about.txt\tgopher.example.org\t70\r\n")
	assert.Contains(t, reply, "1docs\t/docs\tgopher.example.org\t70\r\n")
}

func TestSlashSelectorIsRoot(t *testing.T) {
	svc := newService(t)
	assert.Equal(t, request(t, svc, "\r\n"), request(t, svc, "/\r\n"))
}

func TestSubdirectoryListing(t *testing.T) {
	reply := request(t, newService(t), "/docs\r\n")

	assert.Contains(t, reply, "0rfc-index.txt\t/docs/rfc-index.txt\tgopher.example.org\t70\r\n")
	assert.True(t, strings.HasSuffix(reply, ".\r\n"))
}

func TestFileContents(t *testing.T) {
	reply := request(t, newService(t), "/docs/rfc-index.txt\r\n")

	assert.Contains(t, reply, "RFC 1436")
	assert.True(t, strings.HasSuffix(reply, ".\r\n"))
}

func TestUnknownSelector(t *testing.T) {
	reply := request(t, newService(t), "/nope\r\n")
	assert.Equal(t, "3not found\t\tgopher.example.org\t70\r\n.\r\n", reply)
}

func TestInvalidSelectorIsNotFound(t *testing.T) {
	for _, line := range []string{"relative\r\n", "/with space\r\n"} {
		reply := request(t, newService(t), line)
		assert.True(t, strings.HasPrefix(reply, "3not found\t"), "selector %q", line)
	}
}

func TestSelectorWithoutCRLF(t *testing.T) {
	// A client that half-closes without sending CRLF still gets an answer.
	reply := request(t, newService(t), "/about.txt")
	assert.Contains(t, reply, "document tree")
}
