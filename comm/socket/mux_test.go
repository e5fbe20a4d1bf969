package socket

import (
	"testing"
	"time"
)

// muxWait calls Wait with a timeout so a broken multiplexer fails the
// test instead of hanging it
func muxWait(t *testing.T, m *Multiplexer) (*Conn, int) {
	t.Helper()
	type result struct {
		conn *Conn
		id   int
	}
	ch := make(chan result, 1)
	go func() {
		c, id := m.Wait()
		ch <- result{c, id}
	}()
	select {
	case r := <-ch:
		return r.conn, r.id
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting on multiplexer")
		return nil, -1
	}
}

// TestMuxReadiness verifies Wait reports the socket that has data
func TestMuxReadiness(t *testing.T) {
	clientA, serverA := pair(t)
	_, serverB := pair(t)

	m := NewMultiplexer()
	m.AddSocket(serverA, 7)
	m.AddSocket(serverB, 8)

	if _, err := clientA.Write([]byte("data")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	conn, id := muxWait(t, m)
	if id != 7 {
		t.Fatalf("Expected socket 7 ready, got %d", id)
	}

	buf := make([]byte, 16)
	n, err := conn.ReadNonblock(buf)
	if err != nil {
		t.Fatalf("ReadNonblock failed: %v", err)
	}
	if string(buf[:n]) != "data" {
		t.Errorf("Expected data, got %q", buf[:n])
	}
}

// TestMuxLevelTriggered verifies a socket with unread data is reported
// again on the next Wait
func TestMuxLevelTriggered(t *testing.T) {
	client, server := pair(t)

	m := NewMultiplexer()
	m.AddSocket(server, 3)

	if _, err := client.Write([]byte("xyz")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, id := muxWait(t, m); id != 3 {
		t.Fatalf("Expected socket 3, got %d", id)
	}
	// data still unread: the re-armed watcher must report it again
	if _, id := muxWait(t, m); id != 3 {
		t.Fatalf("Expected socket 3 again, got %d", id)
	}
}

// TestMuxRemove verifies the remaining-count contract
func TestMuxRemove(t *testing.T) {
	_, serverA := pair(t)
	_, serverB := pair(t)

	m := NewMultiplexer()
	m.AddSocket(serverA, 0)
	m.AddSocket(serverB, 1)

	if got := m.RemoveSocket(0); got != 1 {
		t.Errorf("Expected 1 remaining, got %d", got)
	}
	if got := m.RemoveSocket(1); got != 0 {
		t.Errorf("Expected 0 remaining, got %d", got)
	}
	// removing an unknown id must not grow the count
	if got := m.RemoveSocket(42); got != 0 {
		t.Errorf("Expected 0 remaining after no-op removal, got %d", got)
	}
}

// TestMuxBothReady verifies every ready socket is eventually reported
func TestMuxBothReady(t *testing.T) {
	clientA, serverA := pair(t)
	clientB, serverB := pair(t)

	m := NewMultiplexer()
	m.AddSocket(serverA, 0)
	m.AddSocket(serverB, 1)

	if _, err := clientA.Write([]byte("a")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := clientB.Write([]byte("b")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	seen := make(map[int]bool)
	buf := make([]byte, 4)
	for tries := 0; len(seen) < 2 && tries < 20; tries++ {
		conn, id := muxWait(t, m)
		if !seen[id] {
			// drain so this socket stops reporting ready
			if _, err := conn.ReadNonblock(buf); err != nil {
				t.Fatalf("ReadNonblock failed: %v", err)
			}
			seen[id] = true
		}
	}
	if !seen[0] || !seen[1] {
		t.Errorf("Expected both sockets reported, got %v", seen)
	}
}
