package wire

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/commlink-dev/commlink/comm/common"
	"github.com/commlink-dev/commlink/comm/socket"
)

func testConfig() common.Config {
	return common.Config{
		ConnectRetryCount:    100,
		ConnectRetryInterval: 10 * time.Millisecond,
		TCP:                  common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	}.WithDefaults()
}

// tcpPair returns two connected sockets over loopback
func tcpPair(t *testing.T) (client, server *socket.Conn) {
	t.Helper()
	config := testConfig()

	l, err := socket.Listen(common.Address{Host: "127.0.0.1", Port: 0}, config)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port

	dialed := make(chan *socket.Conn, 1)
	go func() {
		c, derr := socket.Dial(common.Address{Host: "127.0.0.1", Port: port}, config)
		if derr != nil {
			t.Errorf("Dial failed: %v", derr)
			dialed <- nil
			return
		}
		dialed <- c
	}()

	server, err = l.Accept()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	client = <-dialed
	if client == nil {
		t.FailNow()
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// readFrame assembles one frame the way the receive loop does: readiness
// waits between non-blocking attempts
func readFrame(t *testing.T, conn *socket.Conn) []byte {
	t.Helper()
	ctx := NewRecvContext()
	for {
		if ctx.AwaitingHeader() {
			size, err := ReadSize(conn)
			if err != nil {
				if errors.Is(err, socket.ErrWouldBlock) {
					if werr := conn.WaitReadable(); werr != nil {
						t.Fatalf("WaitReadable failed: %v", werr)
					}
					continue
				}
				t.Fatalf("ReadSize failed: %v", err)
			}
			if size == 0 {
				return nil // end-of-stream
			}
			ctx.Begin(size)
		}
		if err := ctx.Fill(conn); err != nil {
			t.Fatalf("Fill failed: %v", err)
		}
		if ctx.Complete() {
			return ctx.Take()
		}
		if err := conn.WaitReadable(); err != nil {
			t.Fatalf("WaitReadable failed: %v", err)
		}
	}
}

// TestRoundTrip verifies payloads of various sizes survive the codec
// byte-identical
func TestRoundTrip(t *testing.T) {
	client, server := tcpPair(t)

	payloads := [][]byte{
		[]byte("x"),
		[]byte("hello"),
		bytes.Repeat([]byte("abcdefgh"), 512), // 4 KB
		bytes.Repeat([]byte{0xA5}, 256*1024),  // larger than one segment
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, p := range payloads {
			if err := WriteFrame(client, p); err != nil {
				t.Errorf("WriteFrame failed: %v", err)
				return
			}
		}
		// end-of-stream
		if err := WriteFrame(client, nil); err != nil {
			t.Errorf("WriteFrame of end-of-stream failed: %v", err)
		}
	}()

	for i, want := range payloads {
		got := readFrame(t, server)
		if !bytes.Equal(got, want) {
			t.Errorf("Frame %d: expected %d bytes, got %d (content mismatch)", i, len(want), len(got))
		}
	}

	if got := readFrame(t, server); got != nil {
		t.Errorf("Expected end-of-stream, got %d byte frame", len(got))
	}
	<-done
}

// TestSplitHeader verifies the decoder survives a length prefix split
// across TCP segments
func TestSplitHeader(t *testing.T) {
	client, server := tcpPair(t)

	payload := []byte("split-header-payload")
	var header [HeaderSize]byte
	header[0] = byte(len(payload)) // little endian, length < 256

	go func() {
		if _, err := client.Write(header[:3]); err != nil {
			t.Errorf("partial header write failed: %v", err)
			return
		}
		time.Sleep(50 * time.Millisecond)
		if _, err := client.Write(header[3:]); err != nil {
			t.Errorf("header completion write failed: %v", err)
			return
		}
		if _, err := client.Write(payload); err != nil {
			t.Errorf("payload write failed: %v", err)
		}
	}()

	got := readFrame(t, server)
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected %q, got %q", payload, got)
	}
}

// TestReadSizeWouldBlock verifies an idle connection reports would-block
// instead of suspending the caller
func TestReadSizeWouldBlock(t *testing.T) {
	_, server := tcpPair(t)

	if _, err := ReadSize(server); !errors.Is(err, socket.ErrWouldBlock) {
		t.Errorf("Expected ErrWouldBlock on idle connection, got %v", err)
	}
}
