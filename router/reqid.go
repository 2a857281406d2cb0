package router

import "sync/atomic"

// requestCounter is the process-wide monotone counter from §3,
// "Request-id generator": every outgoing request takes the next value,
// wrapping modulo 2^32. At ~10^4 req/s wraparound takes ~5 days, which is
// why pendingMap is a sparse map keyed by rq_id rather than relying on
// strict monotonicity (§9).
var requestCounter uint32

// NextRequestID returns the next request id.
func NextRequestID() uint32 {
	return atomic.AddUint32(&requestCounter, 1)
}
