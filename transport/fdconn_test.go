package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/wire"
)

// socketPair returns two connected fdConn-backed ends, standing in for a
// live xenstored connection without requiring one.
func socketPair(t *testing.T) (*fdConn, *fdConn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	a := &fdConn{path: "test-a"}
	a.setFd(fds[0])
	b := &fdConn{path: "test-b"}
	b.setFd(fds[1])

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	return a, b
}

func TestFdConnSendRecvRoundTrip(t *testing.T) {
	a, b := socketPair(t)

	p, err := wire.NewPacket(wire.Write, 3, 0, wire.JoinArgs("/foo/bar", "baz"))
	require.NoError(t, err)

	require.NoError(t, a.send(p))

	got, err := b.recv()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestFdConnRecvZeroSizeDoesNotBlock(t *testing.T) {
	a, b := socketPair(t)

	p, err := wire.NewPacket(wire.TransactionEnd, 1, 0, nil)
	require.NoError(t, err)
	require.NoError(t, a.send(p))

	got, err := b.recv()
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestFdConnCloseIsIdempotent(t *testing.T) {
	a, _ := socketPair(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.False(t, a.IsConnected())
}

func TestFdConnRecvAfterPeerCloseIsDisconnected(t *testing.T) {
	a, b := socketPair(t)
	require.NoError(t, b.Close())

	_, err := a.recv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestWaitReadableDataAndStop(t *testing.T) {
	a, b := socketPair(t)
	stopR, stopW, err := unix.Pipe2(0)
	require.NoError(t, err)
	defer unix.Close(stopR)
	defer unix.Close(stopW)

	p, err := wire.NewPacket(wire.Read, 1, 0, wire.JoinArgs("/foo"))
	require.NoError(t, err)
	require.NoError(t, a.send(p))

	dataReady, stopReady, err := WaitReadable(b.Fd(), stopR)
	require.NoError(t, err)
	assert.True(t, dataReady)
	assert.False(t, stopReady)

	_, werr := unix.Write(stopW, []byte{0})
	require.NoError(t, werr)

	// Drain the pending packet first so only the stop pipe is left ready.
	_, err = b.recv()
	require.NoError(t, err)

	dataReady, stopReady, err = WaitReadable(b.Fd(), stopR)
	require.NoError(t, err)
	assert.False(t, dataReady)
	assert.True(t, stopReady)
}
