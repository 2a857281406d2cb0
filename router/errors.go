package router

import "errors"

// ErrUnexpectedPacket reports a protocol violation: a response packet
// arrived whose rq_id has no registered cell. This is fatal to the router
// (§4.4, §7) — either the daemon misbehaved or this is a stale
// packet after termination.
var ErrUnexpectedPacket = errors.New("xenstore: unexpected packet")

// ErrTerminated is published into cells still pending when the router
// shuts down, so their waiters wake instead of blocking forever.
var ErrTerminated = errors.New("xenstore: router terminated")
