package transport

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/wire"
)

// fdConn is the shared read-exactly/write-all byte-stream machinery both
// concrete transports (Socket, CharDevice) are built on: both are, at
// bottom, a raw file descriptor with byte-stream semantics.
type fdConn struct {
	path string

	mu sync.Mutex
	fd int

	connected atomic.Bool
}

func (c *fdConn) setFd(fd int) {
	c.mu.Lock()
	c.fd = fd
	c.mu.Unlock()
	c.connected.Store(true)
}

func (c *fdConn) IsConnected() bool {
	return c.connected.Load()
}

func (c *fdConn) Fd() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fd
}

func (c *fdConn) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	fd := c.fd
	c.fd = -1
	c.mu.Unlock()

	return unix.Close(fd)
}

// writeAll writes the entirety of buf, looping over short writes.
func (c *fdConn) writeAll(buf []byte) error {
	fd := c.Fd()
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			c.Close()
			return wrapIOError("write to", c.path, err)
		}
		buf = buf[n:]
	}

	return nil
}

// readExactly fills buf entirely, looping over short reads. A zero-length
// read (EOF on a byte stream) is treated as a connection reset.
func (c *fdConn) readExactly(buf []byte) error {
	fd := c.Fd()
	for len(buf) > 0 {
		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			c.Close()
			return wrapIOError("read from", c.path, err)
		}
		if n == 0 {
			c.Close()
			return fmt.Errorf("xenstore: read from %s: %w: %v", c.path, ErrDisconnected, io.EOF)
		}
		buf = buf[n:]
	}

	return nil
}

// send writes a packet's header then its payload, as two writes.
func (c *fdConn) send(p wire.Packet) error {
	if !c.IsConnected() {
		return ErrDisconnected
	}

	return p.Encode(writerFunc(c.writeAll))
}

// recv reads one packet: a fixed header, then exactly size bytes of
// payload, skipping the read entirely when size is zero.
func (c *fdConn) recv() (wire.Packet, error) {
	if !c.IsConnected() {
		return wire.Packet{}, ErrDisconnected
	}

	return wire.Decode(readerFunc(c.readExactly))
}

// writerFunc adapts a writeAll-shaped function to io.Writer.
type writerFunc func([]byte) error

func (f writerFunc) Write(p []byte) (int, error) {
	if err := f(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// readerFunc adapts a readExactly-shaped function to io.Reader, reading
// exactly len(p) bytes (wire.Decode only ever asks for exact-size reads).
type readerFunc func([]byte) error

func (f readerFunc) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := f(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
