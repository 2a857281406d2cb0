package xenstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/unikraft/go-xenstore/validate"
	"github.com/unikraft/go-xenstore/wire"
)

// watchRecord is one active (wpath, token) pair on a Monitor.
type watchRecord struct {
	wpath string
	token string
}

// Monitor is a subscription handle for watch events (§4.6). It owns
// a FIFO of events delivered by the router and a blocking iterator that
// filters out events whose watch has since been removed.
type Monitor struct {
	client *Client

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []wire.Event
	watches []watchRecord
	closed  bool
}

// NewToken returns a fresh opaque watch token, for callers that don't
// want to mint their own; the wire protocol treats the token as an
// opaque string (§4.6).
func NewToken() string {
	return uuid.NewString()
}

// Monitor returns a new subscription handle over c. Not available when c
// was constructed over the character-device transport, matching the
// original's restriction on that transport (§4.6, §9).
func (c *Client) Monitor(ctx context.Context) (*Monitor, error) {
	if c.charDevice {
		return nil, fmt.Errorf("xenstore: monitors are not available over the character-device transport")
	}

	m := &Monitor{client: c}
	m.cond = sync.NewCond(&m.mu)
	return m, nil
}

// Notify implements router.Subscriber: the reader loop calls this for
// every event dispatched to a token this monitor has subscribed to.
func (m *Monitor) Notify(path, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.queue = append(m.queue, wire.Event{Path: path, Token: token})
	m.cond.Signal()
}

// Watch validates wpath, registers m under token with the client's
// router, sends the WATCH packet, and records (wpath, token) on m
// (§4.6).
func (m *Monitor) Watch(ctx context.Context, wpath, token string) error {
	if err := validate.WatchPath(wpath); err != nil {
		return validationErr("watch path", wpath, err)
	}

	m.client.router.Subscribe(token, m)

	if err := m.client.ack(ctx, wire.Watch, wire.JoinArgs(wpath, token)); err != nil {
		m.client.router.Unsubscribe(token, m)
		return err
	}

	m.mu.Lock()
	m.watches = append(m.watches, watchRecord{wpath: wpath, token: token})
	m.mu.Unlock()

	return nil
}

// Unwatch sends UNWATCH, unregisters m from the router, and removes the
// (wpath, token) record.
func (m *Monitor) Unwatch(ctx context.Context, wpath, token string) error {
	if err := m.client.ack(ctx, wire.Unwatch, wire.JoinArgs(wpath, token)); err != nil {
		return err
	}

	m.client.router.Unsubscribe(token, m)

	m.mu.Lock()
	for i, w := range m.watches {
		if w.wpath == wpath && w.token == token {
			m.watches = append(m.watches[:i], m.watches[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	return nil
}

// Close issues UNWATCH for every remaining record and stops delivering
// events.
func (m *Monitor) Close(ctx context.Context) error {
	m.mu.Lock()
	watches := append([]watchRecord(nil), m.watches...)
	m.closed = true
	m.mu.Unlock()

	var firstErr error
	for _, w := range watches {
		if err := m.Unwatch(ctx, w.wpath, w.token); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.cond.Broadcast()
	return firstErr
}

// Wait blocks until the FIFO is non-empty, pops one event, and yields it
// only if some currently-watched wpath under the same token is a prefix
// of its path terminated at a "/" boundary (§4.6). Dropped events
// are not returned; Wait loops internally until a matching event surfaces
// or the monitor is closed.
func (m *Monitor) Wait(ctx context.Context) (wire.Event, error) {
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}

		if len(m.queue) == 0 && m.closed {
			m.mu.Unlock()
			return wire.Event{}, fmt.Errorf("xenstore: monitor closed")
		}

		ev := m.queue[0]
		m.queue = m.queue[1:]
		watches := append([]watchRecord(nil), m.watches...)
		m.mu.Unlock()

		if matchesAny(ev, watches) {
			return ev, nil
		}
	}
}

func matchesAny(ev wire.Event, watches []watchRecord) bool {
	for _, w := range watches {
		if w.token == ev.Token && isPathPrefix(w.wpath, ev.Path) {
			return true
		}
	}
	return false
}

// isPathPrefix reports whether wpath is a prefix of path, terminated at a
// "/" boundary: either an exact match, or path continues with a "/" right
// after wpath (§4.6, "Rationale for the prefix check").
func isPathPrefix(wpath, path string) bool {
	if wpath == path {
		return true
	}
	if !strings.HasPrefix(path, wpath) {
		return false
	}
	if wpath == "/" {
		return true
	}
	return len(path) > len(wpath) && path[len(wpath)] == '/'
}
