package wire

import (
	"encoding/binary"
	"errors"
	"net"

	"github.com/commlink-dev/commlink/comm/socket"
)

// HeaderSize is the size of the length prefix in bytes.
const HeaderSize = 8

// WriteFrame writes one length-prefixed frame to the connection. A nil
// or empty payload writes the zero-length end-of-stream frame. The write
// blocks until the whole frame is on the wire; any error is a hard
// transport failure, there is no mid-stream recovery.
func WriteFrame(conn *socket.Conn, data []byte) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(data)))
	if len(data) == 0 {
		_, err := conn.Write(header[:])
		return err
	}
	bufs := net.Buffers{header[:], data}
	return conn.WriteBuffers(&bufs)
}

// ReadSize reads the 8-byte length prefix of the next frame. If the very
// first read attempt yields nothing, it returns socket.ErrWouldBlock and
// the caller retries on the next readiness event. Once any header byte
// has arrived the read does not give up until all 8 bytes are in, waiting
// on the poller between attempts.
func ReadSize(conn *socket.Conn) (int64, error) {
	var header [HeaderSize]byte
	got := 0
	for got < HeaderSize {
		n, err := conn.ReadNonblock(header[got:])
		if err != nil {
			if errors.Is(err, socket.ErrWouldBlock) {
				if got == 0 {
					return 0, socket.ErrWouldBlock
				}
				// The header is split across TCP segments, finish it.
				if werr := conn.WaitReadable(); werr != nil {
					return 0, werr
				}
				continue
			}
			return 0, err
		}
		got += n
	}
	return int64(binary.LittleEndian.Uint64(header[:])), nil
}

// RecvContext is the per-connection state machine that assembles one
// frame across multiple readiness wake-ups.
type RecvContext struct {
	size int64 // announced payload length, -1 = awaiting header
	buf  []byte
	got  int64
}

// NewRecvContext returns a context awaiting a new frame header.
func NewRecvContext() *RecvContext {
	return &RecvContext{size: -1}
}

// AwaitingHeader reports whether no frame is currently in flight.
func (c *RecvContext) AwaitingHeader() bool {
	return c.size == -1
}

// Begin starts assembling a frame of the announced size.
func (c *RecvContext) Begin(size int64) {
	c.size = size
	c.buf = make([]byte, size)
	c.got = 0
}

// Fill drains whatever payload bytes the connection has pending into the
// context buffer without blocking. It stops at would-block; the caller
// checks Complete afterwards. A no-op while awaiting a header.
func (c *RecvContext) Fill(conn *socket.Conn) error {
	for c.got < c.size {
		n, err := conn.ReadNonblock(c.buf[c.got:])
		if err != nil {
			if errors.Is(err, socket.ErrWouldBlock) {
				return nil
			}
			return err
		}
		c.got += int64(n)
	}
	return nil
}

// Complete reports whether the whole announced payload has arrived.
func (c *RecvContext) Complete() bool {
	return c.size >= 0 && c.got >= c.size
}

// Take hands out the assembled payload and resets the context to
// "awaiting new header".
func (c *RecvContext) Take() []byte {
	buf := c.buf
	c.size = -1
	c.buf = nil
	c.got = 0
	return buf
}
