package transport

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/log"
	"github.com/unikraft/go-xenstore/wire"
)

// Socket is a XenStore connection through a Unix domain stream socket,
// used from user space in the control domain (§4.3).
type Socket struct {
	fdConn
}

// NewSocket returns an unconnected Socket transport for the given path.
func NewSocket(path string) *Socket {
	return &Socket{fdConn: fdConn{path: path, fd: -1}}
}

// Connect dials the Unix domain socket.
func (s *Socket) Connect(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("xenstore: creating socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: s.path}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("xenstore: connecting to %s: %w", s.path, err)
	}

	log.WithComponent(ctx, "transport").WithField("path", s.path).Trace("connected xenstore socket transport")

	s.setFd(fd)
	return nil
}

func (s *Socket) Send(p wire.Packet) error       { return s.send(p) }
func (s *Socket) Recv() (wire.Packet, error)     { return s.recv() }
