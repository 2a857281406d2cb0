// Package router implements the request/response multiplexer and watch
// demultiplexer at the heart of this client: one full-duplex byte stream
// shared by an arbitrary number of concurrent callers (§4.4).
//
// Grounded on the same shape go-libvirt's RPC layer uses for its own
// single-stream multiplexer (a map of pending calls keyed by a request
// serial, drained by one reader goroutine that either completes a call or
// fans an event out), generalized here to also demultiplex watch events by
// token and to support a self-pipe shutdown the daemon's async event
// stream requires.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/log"
	"github.com/unikraft/go-xenstore/transport"
	"github.com/unikraft/go-xenstore/wire"
)

// Router owns a transport and the background reader that multiplexes
// outgoing requests from many callers and demultiplexes incoming
// responses and watch events (§4.4).
type Router struct {
	transport transport.Transport

	sendMu sync.Mutex

	pending     *pendingMap
	subscribers *subscriberMap

	stopR, stopW int

	g       *errgroup.Group
	started atomic.Bool

	terminating atomic.Bool
	terminated  atomic.Bool
	termErr     error
	termOnce    sync.Once
}

// New returns a Router over the given transport. Call Start before using
// it.
func New(t transport.Transport) *Router {
	return &Router{
		transport:   t,
		pending:     newPendingMap(),
		subscribers: newSubscriberMap(),
	}
}

// Start opens the transport synchronously, so connection failures
// propagate directly to the caller, then spawns the background reader.
func (r *Router) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := r.transport.Connect(ctx); err != nil {
		return fmt.Errorf("xenstore: starting router: %w", err)
	}

	stopR, stopW, err := unix.Pipe2(0)
	if err != nil {
		return fmt.Errorf("xenstore: creating shutdown pipe: %w", err)
	}
	r.stopR, r.stopW = stopR, stopW

	r.g = new(errgroup.Group)
	r.g.Go(func() error {
		return r.readLoop(ctx)
	})

	return nil
}

// Send serializes p onto the transport under the send lock and registers
// a response cell under p.ReqID, returned so the caller can block on it.
// The cell is registered before the first byte goes out.
func (r *Router) Send(p wire.Packet) (*Cell, error) {
	cell := newCell()
	r.pending.register(p.ReqID, cell)

	r.sendMu.Lock()
	err := r.transport.Send(p)
	r.sendMu.Unlock()

	if err != nil {
		r.pending.remove(p.ReqID)
		cell.fail(err)
		return cell, err
	}

	return cell, nil
}

// Subscribe registers sub to receive events for token.
func (r *Router) Subscribe(token string, sub Subscriber) {
	r.subscribers.subscribe(token, sub)
}

// Unsubscribe removes sub from token. Idempotent on double-unsubscribe.
func (r *Router) Unsubscribe(token string, sub Subscriber) {
	r.subscribers.unsubscribe(token, sub)
}

// Terminate pokes the self-pipe and joins the reader. Idempotent: callers
// after the first receive the same result the first call produced. If the
// reader had already exited on its own (e.g. a protocol violation), that
// terminal error is returned instead of nil.
func (r *Router) Terminate() error {
	if !r.started.Load() {
		return nil
	}

	if r.terminating.CompareAndSwap(false, true) {
		// Best effort: if the reader already exited on its own, stopW may
		// already be closed by its cleanup, in which case this write fails
		// and is ignored — g.Wait() below still returns promptly because
		// the goroutine has already finished.
		unix.Write(r.stopW, []byte{0})
	}

	r.termOnce.Do(func() {
		r.termErr = r.g.Wait()
	})

	return r.termErr
}

// readLoop is the router's single background reader: it waits for the
// transport or the shutdown pipe to become readable, decodes one packet,
// and either completes a pending call or fans a watch event out
// (§4.4, "Reader loop").
func (r *Router) readLoop(ctx context.Context) error {
	defer r.cleanup()

	logger := log.WithComponent(ctx, "router")

	for {
		dataReady, stopReady, err := transport.WaitReadable(r.transport.Fd(), r.stopR)
		if err != nil {
			return fmt.Errorf("xenstore: waiting for readiness: %w", err)
		}

		if stopReady {
			logger.Trace("router reader observed shutdown signal")
			return nil
		}

		if !dataReady {
			continue
		}

		p, err := r.transport.Recv()
		if err != nil {
			if errors.Is(err, transport.ErrDisconnected) {
				logger.WithError(err).Debug("xenstore transport disconnected")
			}
			return err
		}

		if p.Op == wire.WatchEvent {
			ev, err := wire.DecodeEvent(p.Payload)
			if err != nil {
				return fmt.Errorf("xenstore: decoding watch event: %w", err)
			}
			r.subscribers.dispatch(ev.Path, ev.Token)
			continue
		}

		cell, ok := r.pending.remove(p.ReqID)
		if !ok {
			return fmt.Errorf("%w: rq_id=%d op=%s", ErrUnexpectedPacket, p.ReqID, p.Op)
		}
		cell.publish(p)
	}
}

// cleanup closes the transport and both self-pipe ends, and wakes any
// still-pending callers so none is left blocked forever (§4.4,
// "Shutdown"; §5, "Resource scope").
func (r *Router) cleanup() {
	r.transport.Close()
	unix.Close(r.stopR)
	unix.Close(r.stopW)
	r.pending.failAll(ErrTerminated)
	r.terminated.Store(true)
}
