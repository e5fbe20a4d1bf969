// Package wire implements the framing protocol: every message travels
// as an 8-byte little-endian length followed by that many payload bytes.
// A zero-length frame carries no payload and means "no further frames on
// this connection".
//
// Writing a frame is a plain blocking write. Reading is incremental
// because the receive side uses non-blocking sockets: a single readiness
// event rarely delivers a whole frame, so the per-connection RecvContext
// keeps the partially assembled frame alive across wake-ups.
package wire
