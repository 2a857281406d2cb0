package transport

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrDisconnected reports that the underlying stream failed or was reset.
// Not retried by the core; the caller decides whether to reconnect.
var ErrDisconnected = errors.New("xenstore: transport disconnected")

// isReset reports whether err is one of the connection-reset errnos the
// daemon or kernel can hand back on a broken pipe: ECONNRESET,
// ECONNABORTED, EPIPE.
func isReset(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}

	switch errno {
	case unix.ECONNRESET, unix.ECONNABORTED, unix.EPIPE:
		return true
	default:
		return false
	}
}

// wrapIOError classifies a raw syscall error from a transport read/write,
// converting a reset into ErrDisconnected while preserving other errors.
func wrapIOError(op, path string, err error) error {
	if isReset(err) {
		return fmt.Errorf("xenstore: %s %s: %w: %v", op, path, ErrDisconnected, err)
	}

	return fmt.Errorf("xenstore: %s %s: %w", op, path, err)
}
