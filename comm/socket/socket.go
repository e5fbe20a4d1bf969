package socket

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/commlink-dev/commlink/comm/common"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("comm/socket")

// ErrWouldBlock is returned by ReadNonblock when the connection has no
// pending data. It marks the "not enough data yet" case that the framing
// state machine retries on the next readiness event.
var ErrWouldBlock = errors.New("socket: read would block")

// log the connect retry progress every this many attempts
const retryLogInterval = 200

// Conn is a TCP connection together with its raw descriptor handle,
// which the non-blocking read and the readiness wait operate on.
// A Conn is owned by exactly one worker goroutine after setup.
type Conn struct {
	tcp *net.TCPConn
	raw syscall.RawConn
}

func newConn(tcp *net.TCPConn, config common.Config) (*Conn, error) {
	if err := tune(tcp, config); err != nil {
		tcp.Close()
		return nil, fmt.Errorf("failed to tune connection: %v", err)
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		tcp.Close()
		return nil, err
	}
	return &Conn{tcp: tcp, raw: raw}, nil
}

// tune applies the SocketConf and TCPConf options to a connection.
func tune(conn *net.TCPConn, config common.Config) error {
	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := conn.SetNoDelay(config.TCP.TCPNoDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if config.Socket.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(config.Socket.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if config.Socket.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(config.Socket.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if config.TCP.TCPKeepAliveSec > 0 {
		if err := conn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(config.TCP.TCPKeepAliveSec) * time.Second
		if err := conn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if config.TCP.TCPLingerSec >= 0 {
		if err := conn.SetLinger(config.TCP.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// Dial opens one connection to addr, retrying up to
// config.ConnectRetryCount times with a fixed backoff. While retrying it
// logs progress periodically so a receiver that is still starting up is
// visible in the logs rather than a silent stall.
func Dial(addr common.Address, config common.Config) (*Conn, error) {
	var lastErr error
	for try := 0; try < config.ConnectRetryCount; try++ {
		c, err := net.Dial("tcp", addr.String())
		if err == nil {
			return newConn(c.(*net.TCPConn), config)
		}
		lastErr = err
		common.ConnectRetries.Inc()
		if try != 0 && try%retryLogInterval == 0 {
			Logger.Infof("still trying to connect to %s (attempt %d/%d)",
				addr, try, config.ConnectRetryCount)
		}
		time.Sleep(config.ConnectRetryInterval)
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %v",
		addr, config.ConnectRetryCount, lastErr)
}

// Write writes all of p to the connection. A short write is retried by
// the net package; any returned error is a hard transport failure.
func (c *Conn) Write(p []byte) (int, error) {
	return c.tcp.Write(p)
}

// WriteBuffers writes the buffers with a single vectored write where the
// platform supports it.
func (c *Conn) WriteBuffers(bufs *net.Buffers) error {
	_, err := bufs.WriteTo(c.tcp)
	return err
}

// ReadNonblock performs exactly one non-blocking read into p. It returns
// ErrWouldBlock when no data is pending, io.EOF once the peer has closed
// the connection, and the number of bytes read otherwise. It never
// suspends the caller.
func (c *Conn) ReadNonblock(p []byte) (int, error) {
	var (
		n    int
		serr error
	)
	err := c.raw.Read(func(fd uintptr) bool {
		n, serr = unix.Read(int(fd), p)
		// one attempt only, never park in the poller
		return true
	})
	if err != nil {
		return 0, err
	}
	if serr != nil {
		if serr == unix.EAGAIN || serr == unix.EWOULDBLOCK || serr == unix.EINTR {
			return 0, ErrWouldBlock
		}
		return 0, os.NewSyscallError("read", serr)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// WaitReadable parks the caller in the runtime's network poller until
// the connection is readable (or closed). It does not consume any bytes.
func (c *Conn) WaitReadable() error {
	first := true
	return c.raw.Read(func(fd uintptr) bool {
		if first {
			first = false
			return false
		}
		return true
	})
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.tcp.Close()
}

// RemoteAddr returns the remote endpoint of the connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.tcp.RemoteAddr()
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// Listener accepts sender connections and applies the configured socket
// tuning to each accepted connection.
type Listener struct {
	l      net.Listener
	config common.Config
}

// Listen binds and listens on addr.
func Listen(addr common.Address, config common.Config) (*Listener, error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket on %s: %v", addr, err)
	}
	return &Listener{l: l, config: config}, nil
}

// Accept waits for and returns the next connection.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.l.Accept()
	if err != nil {
		return nil, err
	}
	return newConn(c.(*net.TCPConn), l.config)
}

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	return l.l.Close()
}
