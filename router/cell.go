package router

import (
	"sync"

	"github.com/unikraft/go-xenstore/wire"
)

// Cell is a single-producer, single-consumer rendezvous holding at most
// one packet: callers block on Wait until the router's reader publishes a
// response or the router is terminated, at which point the value is
// immutable (§3, "Response cell").
type Cell struct {
	once   sync.Once
	done   chan struct{}
	packet wire.Packet
	err    error
}

func newCell() *Cell {
	return &Cell{done: make(chan struct{})}
}

// publish hands the response packet to the waiting caller. Only the first
// call (publish or fail) has any effect.
func (c *Cell) publish(p wire.Packet) {
	c.once.Do(func() {
		c.packet = p
		close(c.done)
	})
}

// fail wakes the waiting caller with a terminal error instead of a
// packet — used when the router is torn down with this cell still
// pending, so the waiter isn't left blocked forever.
func (c *Cell) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Wait blocks until the cell has a value, then returns it.
func (c *Cell) Wait() (wire.Packet, error) {
	<-c.done
	return c.packet, c.err
}
