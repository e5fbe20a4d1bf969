package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the kernel buffer sizes applied to every connection.
type SocketConf struct {
	// WriteBufferSize sets the socket write buffer in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize sets the socket read buffer in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds the TCP specific tuning options applied to every connection.
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive with the given period (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER when >= 0
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Transport configuration struct
// --------------------------------------------------------------------------

// Config holds all configuration parameters for a Sender or Receiver.
type Config struct {
	// MaxThreadCount caps the number of worker goroutines per side.
	// 0 means one worker per peer.
	MaxThreadCount int

	// QueueCapacity bounds each per-peer message queue. 0 means unbounded.
	QueueCapacity int

	// NonBlockingSend makes Sender.Send return queue.ErrFull instead of
	// blocking when the shard queue is at capacity.
	NonBlockingSend bool

	// ConnectRetryCount is the number of connection attempts before
	// Connect gives up.
	ConnectRetryCount int

	// ConnectRetryInterval is the fixed backoff between attempts.
	ConnectRetryInterval time.Duration

	// Logging configuration
	LogLevel string

	Socket SocketConf
	TCP    TCPConf
}

// DefaultConfig returns the configuration used when the caller passes the
// zero value: one worker per peer, unbounded queues and the retry budget
// of the original deployment (1024 attempts, 5s apart).
func DefaultConfig() Config {
	return Config{
		MaxThreadCount:       0,
		QueueCapacity:        0,
		ConnectRetryCount:    1024,
		ConnectRetryInterval: 5 * time.Second,
		LogLevel:             "info",
		TCP: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// WithDefaults fills unset retry fields so a zero-value Config is usable.
func (c Config) WithDefaults() Config {
	if c.ConnectRetryCount <= 0 {
		c.ConnectRetryCount = 1024
	}
	if c.ConnectRetryInterval <= 0 {
		c.ConnectRetryInterval = 5 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TCP.TCPLingerSec == 0 {
		// unset means OS default; linger 0 would discard unsent data on close
		c.TCP.TCPLingerSec = -1
	}
	return c
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Workers")
	if c.MaxThreadCount == 0 {
		addField("Max Worker Count", "one per peer")
	} else {
		addField("Max Worker Count", strconv.Itoa(c.MaxThreadCount))
	}
	if c.QueueCapacity == 0 {
		addField("Queue Capacity", "unbounded")
	} else {
		addField("Queue Capacity", strconv.Itoa(c.QueueCapacity))
	}
	addField("Non-Blocking Send", fmt.Sprintf("%t", c.NonBlockingSend))

	addSection("Connect Retry")
	addField("Retry Count", strconv.Itoa(c.ConnectRetryCount))
	addField("Retry Interval", c.ConnectRetryInterval.String())

	addSection("Socket")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Socket.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Socket.ReadBufferSize))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.TCP.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCP.TCPLingerSec))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
