// Package comm is a point-to-point message-passing transport for a
// fixed set of logical peers identified by small integer IDs, over TCP.
//
// A Sender pushes opaque byte payloads to one or more receivers; a
// Receiver accepts a known number of sender connections and yields
// messages to a consuming goroutine in arrival order per peer, with
// round-robin fairness across peers.
//
// Guarantees: FIFO delivery per peer in both directions, no ordering
// across peers, at-most-once delivery over the reliable stream. A broken
// connection after establishment is fatal; only the initial connect is
// retried.
package comm
