// Package transport implements the byte-oriented, full-duplex connections
// to xenstored that the router multiplexes over: a Unix stream socket from
// user space in the control domain, and a XenBus character device from
// inside a guest domain (§4.3).
package transport

import (
	"context"

	"github.com/unikraft/go-xenstore/wire"
)

// Transport is the abstract contract both backends satisfy: connect,
// close, framed send/recv built on read-exactly/write-all loops, and a
// raw file descriptor a caller can multiplex alongside a shutdown signal.
type Transport interface {
	// Connect establishes the connection. Called synchronously by the
	// router's start() so that connection failures propagate directly to
	// the caller.
	Connect(ctx context.Context) error

	// Close tears down the connection. Idempotent.
	Close() error

	// Send serializes and writes one packet as a header write followed by
	// a payload write.
	Send(p wire.Packet) error

	// Recv reads exactly one packet: a 16-byte header, then exactly
	// header.size bytes of payload (no read at all when size is zero).
	Recv() (wire.Packet, error)

	// IsConnected reports whether the transport currently owns a live
	// file descriptor.
	IsConnected() bool

	// Fd returns the underlying file descriptor, for readiness polling
	// alongside the router's shutdown pipe. Only valid while connected.
	Fd() int
}
