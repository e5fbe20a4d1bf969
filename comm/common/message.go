package common

import (
	"net"
	"strconv"
	"strings"
)

// Message is one unit of transfer between two peers. The payload is
// opaque to the transport. Ownership of Data transfers to the queue on
// enqueue and to the consumer on dequeue.
type Message struct {
	// Data is the payload. A nil/empty payload is reserved for the
	// end-of-stream signal and is never visible to application code.
	Data []byte

	// ReceiverID tags the message with its destination peer. It is set
	// by Sender.Send and is only meaningful inside the send pipeline.
	ReceiverID int
}

// Address is a resolved peer endpoint.
type Address struct {
	Host string
	Port int
}

// String returns the endpoint in host:port form, suitable for net.Dial.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ParseAddress parses a peer address of the form 'socket://<host>:<port>'.
// A malformed address is a configuration error, not a runtime condition,
// and panics via the package logger.
func ParseAddress(addr string) Address {
	sub := strings.Split(addr, "//")
	if len(sub) != 2 || sub[0] != "socket:" {
		Logger.Panicf("incorrect address format %q: expected 'socket://<host>:<port>', e.g. 'socket://127.0.0.1:50051'", addr)
	}
	hostPort := strings.Split(sub[1], ":")
	if len(hostPort) != 2 {
		Logger.Panicf("incorrect address format %q: expected 'socket://<host>:<port>', e.g. 'socket://127.0.0.1:50051'", addr)
	}
	port, err := strconv.Atoi(hostPort[1])
	if err != nil {
		Logger.Panicf("incorrect address format %q: port %q is not a number", addr, hostPort[1])
	}
	return Address{Host: hostPort[0], Port: port}
}
