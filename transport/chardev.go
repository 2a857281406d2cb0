package transport

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/log"
	"github.com/unikraft/go-xenstore/wire"
)

// CharDevice is a XenStore connection through the XenBus character
// device, used from inside a guest domain (§4.3). Monitors are not
// available over this transport — see §4.6/§9.
type CharDevice struct {
	fdConn
}

// NewCharDevice returns an unconnected CharDevice transport for the given
// device node path.
func NewCharDevice(path string) *CharDevice {
	return &CharDevice{fdConn: fdConn{path: path, fd: -1}}
}

// Connect opens the device node read/write.
func (c *CharDevice) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	fd, err := unix.Open(c.path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("xenstore: opening %s: %w", c.path, err)
	}

	log.WithComponent(ctx, "transport").WithField("path", c.path).Trace("opened xenstore character device transport")

	c.setFd(fd)
	return nil
}

func (c *CharDevice) Send(p wire.Packet) error   { return c.send(p) }
func (c *CharDevice) Recv() (wire.Packet, error) { return c.recv() }
