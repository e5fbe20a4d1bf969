package socket

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/commlink-dev/commlink/comm/common"
)

func testConfig() common.Config {
	return common.Config{
		ConnectRetryCount:    100,
		ConnectRetryInterval: 10 * time.Millisecond,
		TCP:                  common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	}.WithDefaults()
}

func pair(t *testing.T) (client, server *Conn) {
	t.Helper()
	config := testConfig()

	l, err := Listen(common.Address{Host: "127.0.0.1", Port: 0}, config)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	dialed := make(chan *Conn, 1)
	go func() {
		c, derr := Dial(common.Address{Host: "127.0.0.1", Port: port}, config)
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

// TestReadNonblock verifies the three outcomes: would-block on an idle
// connection, data when pending, EOF after peer close
func TestReadNonblock(t *testing.T) {
	client, server := pair(t)

	buf := make([]byte, 16)
	if _, err := server.ReadNonblock(buf); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Expected ErrWouldBlock on idle connection, got %v", err)
	}

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := server.WaitReadable(); err != nil {
		t.Fatalf("WaitReadable failed: %v", err)
	}
	n, err := server.ReadNonblock(buf)
	if err != nil {
		t.Fatalf("ReadNonblock failed: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Errorf("Expected ping, got %q", buf[:n])
	}

	client.Close()
	if err := server.WaitReadable(); err != nil {
		t.Fatalf("WaitReadable after close failed: %v", err)
	}
	if _, err := server.ReadNonblock(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after peer close, got %v", err)
	}
}

// TestDialRetry verifies Dial keeps trying until a listener shows up
func TestDialRetry(t *testing.T) {
	config := testConfig()

	// reserve a port, then release it so Dial initially fails
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	addr := common.Address{Host: "127.0.0.1", Port: port}

	dialed := make(chan error, 1)
	go func() {
		c, derr := Dial(addr, config)
		if derr == nil {
			c.Close()
		}
		dialed <- derr
	}()

	// come up late, within the retry budget
	time.Sleep(100 * time.Millisecond)
	lst, err := Listen(addr, config)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer lst.Close()

	accepted := make(chan struct{})
	go func() {
		if c, aerr := lst.Accept(); aerr == nil {
			c.Close()
		}
		close(accepted)
	}()

	select {
	case derr := <-dialed:
		if derr != nil {
			t.Errorf("Dial failed despite listener coming up: %v", derr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for Dial to succeed")
	}
	<-accepted
}

// TestDialExhaustsBudget verifies Dial gives up with an error
func TestDialExhaustsBudget(t *testing.T) {
	config := testConfig()
	config.ConnectRetryCount = 3

	// a port nobody listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	if _, err := Dial(common.Address{Host: "127.0.0.1", Port: port}, config); err == nil {
		t.Error("Expected Dial to fail after exhausting the retry budget")
	}
}
