package comm

import (
	"github.com/commlink-dev/commlink/comm/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("comm")

// --------------------------------------------------------------------------
// Sender
// --------------------------------------------------------------------------

// Sender is the outbound half of the transport. Usage: register every
// receiver with AddReceiver, then Connect once, then Send any number of
// messages, then Finalize exactly once. Misuse (Send before Connect,
// unknown receiver ID, empty payload) is a programming error and panics.
type Sender interface {
	// AddReceiver registers a destination peer. The address has the form
	// 'socket://<host>:<port>'. A malformed address or negative ID panics.
	AddReceiver(addr string, recvID int)

	// Connect opens one TCP connection per registered receiver, retrying
	// each within the configured budget, and starts the send workers.
	// A receiver that never comes up surfaces as an error, not a panic.
	Connect() error

	// Send queues msg for delivery to recvID. It blocks while the shard
	// queue is at capacity unless NonBlockingSend is configured, in which
	// case it returns queue.ErrFull.
	Send(msg common.Message, recvID int) error

	// Finalize blocks until every queued message has been written to its
	// socket, sends one end-of-stream frame per receiver, joins the
	// workers and closes all sockets.
	Finalize()
}

// --------------------------------------------------------------------------
// Receiver
// --------------------------------------------------------------------------

// Receiver is the inbound half of the transport.
//
// Recv and RecvFrom share one counting signal, so a single Receiver must
// stick to one of the two calls: mixing them can consume a signal meant
// for a different peer's queue and leave a later call under-signaled.
type Receiver interface {
	// Wait binds and listens on addr ('socket://<host>:<port>'), accepts
	// exactly numSenders connections and starts the receive workers.
	// Bind or listen failure panics; a failed accept returns an error.
	Wait(addr string, numSenders int) error

	// Recv returns the next message from any sender together with the
	// sender's ID, blocking until one is available. Fair across senders:
	// a round-robin cursor persists between calls. Returns queue.ErrClosed
	// once every sender has finished and all messages were consumed.
	Recv() (common.Message, int, error)

	// RecvFrom returns the next message from the given sender, blocking
	// until one is available or that sender's stream has ended.
	RecvFrom(sendID int) (common.Message, error)

	// Finalize drains and closes every per-sender queue, joins the
	// workers and closes all sockets including the listener.
	Finalize()
}

// NewSender creates a TCP sender with the given configuration.
func NewSender(config common.Config) Sender {
	return newSocketSender(config)
}

// NewReceiver creates a TCP receiver with the given configuration.
func NewReceiver(config common.Config) Receiver {
	return newSocketReceiver(config)
}
