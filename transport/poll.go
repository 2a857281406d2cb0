package transport

import (
	"golang.org/x/sys/unix"
)

// WaitReadable blocks until fd or stopFd is readable, multiplexing the two
// with a single poll(2) call — the mechanism §4.4 requires so the
// router's reader can be interrupted out of a blocking wait by the
// self-pipe's write end without closing the transport from another
// goroutine. It returns which of the two fired; both may be set if they
// became ready simultaneously.
func WaitReadable(fd, stopFd int) (dataReady, stopReady bool, err error) {
	fds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(stopFd), Events: unix.POLLIN},
	}

	for {
		_, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, false, err
		}
		break
	}

	return fds[0].Revents&unix.POLLIN != 0, fds[1].Revents&unix.POLLIN != 0, nil
}
