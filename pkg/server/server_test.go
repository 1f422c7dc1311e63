package server

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		MaxInputBytes:   64 * 1024,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

// echoHandler copies input back until the client closes or errors.
var echoHandler = StreamHandlerFunc(func(_ context.Context, conn *Conn) error {
	_, err := io.Copy(conn, conn)
	return err
})

func startTCP(t *testing.T, handler StreamHandler, opts Options) (*TCPServer, context.CancelFunc, chan error) {
	t.Helper()

	srv := NewTCPServer("echo", 0, handler, opts, nil)
	require.NoError(t, srv.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
		close(errCh)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	return srv, cancel, errCh
}

func TestTCPServerEndToEnd(t *testing.T) {
	srv, _, _ := startTCP(t, echoHandler, testOptions())

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestTCPServerGracefulShutdown(t *testing.T) {
	srv, cancel, errCh := startTCP(t, echoHandler, testOptions())

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	// The listener is gone.
	_, err = net.DialTimeout("tcp", srv.Addr().String(), 500*time.Millisecond)
	assert.Error(t, err)
}

func TestTCPServerForceClosesStuckConnections(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	stuck := StreamHandlerFunc(func(_ context.Context, _ *Conn) error {
		<-block
		return nil
	})

	opts := testOptions()
	opts.ShutdownTimeout = 100 * time.Millisecond
	srv, cancel, errCh := startTCP(t, stuck, opts)

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	// Give the accept loop time to register the connection.
	require.Eventually(t, func() bool {
		return srv.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "force-closed")
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestTCPServerResetsOnInputLimit(t *testing.T) {
	opts := testOptions()
	opts.MaxInputBytes = 16
	srv, _, _ := startTCP(t, echoHandler, opts)

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte(strings.Repeat("x", 64)))
	require.NoError(t, err)

	// Drain until the reset arrives.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	for {
		_, err = client.Read(buf)
		if err != nil {
			break
		}
	}
	assert.NotErrorIs(t, err, io.EOF, "expected a reset, not a clean close")
}

func TestConnEnforcesInputCap(t *testing.T) {
	left, right := net.Pipe()
	defer left.Close()
	defer right.Close()

	go func() {
		_, _ = right.Write([]byte("12345678"))
	}()

	conn := NewConn(left, 4, 0)
	buf := make([]byte, 64)

	var err error
	total := 0
	for err == nil {
		var n int
		n, err = conn.Read(buf)
		total += n
	}

	require.ErrorIs(t, err, ErrInputLimit)
	assert.LessOrEqual(t, total, 5)
}

func TestUDPServerRepliesOnce(t *testing.T) {
	upper := PacketHandlerFunc(func(_ context.Context, payload []byte) ([]byte, bool) {
		return []byte(strings.ToUpper(string(payload))), true
	})

	srv := NewUDPServer("echo", 0, upper, testOptions(), nil)
	require.NoError(t, srv.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-errCh
	}()

	client, err := net.Dial("udp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PING", string(buf[:n]))
}

func TestUDPServerSilentHandler(t *testing.T) {
	silent := PacketHandlerFunc(func(_ context.Context, _ []byte) ([]byte, bool) {
		return nil, false
	})

	srv := NewUDPServer("discard", 0, silent, testOptions(), nil)
	require.NoError(t, srv.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-errCh
	}()

	client, err := net.Dial("udp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("anything"))
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 64)
	_, err = client.Read(buf)
	assert.Error(t, err, "discard must never reply")
}

func TestHostBindsAllBeforeServing(t *testing.T) {
	// Occupy a port so the second descriptor cannot bind.
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	takenPort := taken.Addr().(*net.TCPAddr).Port

	host := NewHost(Options{
		BindAddress:     "127.0.0.1",
		ShutdownTimeout: time.Second,
	}, []Descriptor{
		{Name: "echo", Port: 0, Stream: echoHandler},
		{Name: "clash", Port: takenPort, Stream: echoHandler},
	}, nil)

	err = host.Bind()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clash")

	// The first listener was released again: its port can be rebound.
	firstAddr := host.Listeners()[0].Addr()
	require.NotNil(t, firstAddr)
	rebound, err := net.Listen("tcp", firstAddr.String())
	require.NoError(t, err)
	require.NoError(t, rebound.Close())
}

func TestHostServesMultipleProtocols(t *testing.T) {
	now := PacketHandlerFunc(func(_ context.Context, _ []byte) ([]byte, bool) {
		return []byte("now"), true
	})

	host := NewHost(testOptions(), []Descriptor{
		{Name: "echo", Port: 0, Stream: echoHandler},
		{Name: "time", Port: 0, Packet: now},
	}, nil)

	require.NoError(t, host.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- host.Serve(ctx) }()

	var tcpAddr, udpAddr string
	for _, l := range host.Listeners() {
		switch l.(type) {
		case *TCPServer:
			tcpAddr = l.Addr().String()
		case *UDPServer:
			udpAddr = l.Addr().String()
		}
	}

	tcpClient, err := net.Dial("tcp", tcpAddr)
	require.NoError(t, err)
	_, err = tcpClient.Write([]byte("hi"))
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = io.ReadFull(tcpClient, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf))
	require.NoError(t, tcpClient.Close())

	udpClient, err := net.Dial("udp", udpAddr)
	require.NoError(t, err)
	_, err = udpClient.Write([]byte{0})
	require.NoError(t, err)
	require.NoError(t, udpClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf = make([]byte, 64)
	n, err := udpClient.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "now", string(buf[:n]))
	require.NoError(t, udpClient.Close())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not shut down")
	}
}

func TestHostWithNoListeners(t *testing.T) {
	host := NewHost(testOptions(), nil, nil)
	require.NoError(t, host.Bind())
	assert.Error(t, host.Serve(context.Background()))
}
