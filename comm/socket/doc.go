// Package socket wraps raw TCP connections with the primitives the
// transport loops need: dialing with a bounded retry budget, listening
// and accepting, per-connection tuning (buffer sizes, no-delay,
// keep-alive, linger), a true non-blocking read and a readiness wait
// built on the runtime's network poller.
//
// The Multiplexer in this package turns a set of connections owned by
// one worker goroutine into a stream of readiness events: Wait blocks
// until at least one registered connection is readable and returns one
// ready (conn, id) pair. It only notifies readiness, it never reads or
// interprets bytes.
package socket
