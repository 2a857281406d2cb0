// Package xenstore is a client library for XenStore, the hierarchical
// configuration database the Xen hypervisor uses to mediate between the
// control domain and guest domains. It implements the full wire
// protocol: synchronous operations (read/write/list/permissions/
// transactions/domain management) and an asynchronous watch channel.
package xenstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"xenbits.xenproject.org/git-http/xen.git/tools/golang/xenlight"

	"github.com/unikraft/go-xenstore/log"
	"github.com/unikraft/go-xenstore/router"
	"github.com/unikraft/go-xenstore/transport"
	"github.com/unikraft/go-xenstore/validate"
	"github.com/unikraft/go-xenstore/wire"
	"github.com/unikraft/go-xenstore/xsconfig"
)

// Client is a caller's handle onto XenStore: user-facing operations plus
// the current transaction id. One Client owns one Router; cloning a
// client (Transaction) shares the router and thus the connection
// (§4.5, §9).
type Client struct {
	router *router.Router

	mu            sync.Mutex
	txID          uint32
	controlDomain bool
	charDevice    bool

	refs *int32
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

type clientConfig struct {
	transport transport.Transport
}

// WithTransport overrides the transport a client connects through,
// instead of autodetecting one from xsconfig.
func WithTransport(t transport.Transport) Option {
	return func(c *clientConfig) { c.transport = t }
}

// NewSocketClient connects to xenstored over a Unix domain stream
// socket, the transport used from user space in the control domain
// (§4.3).
func NewSocketClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := resolveConfig(opts)
	if cfg.transport == nil {
		endpoints := xsconfig.FromContext(ctx)
		cfg.transport = transport.NewSocket(endpoints.SocketPath)
	}
	return newClient(ctx, cfg.transport)
}

// NewCharDeviceClient connects to xenstored over the XenBus character
// device, the transport used from inside a guest domain (§4.3).
// Monitors are not available on a client constructed this way
// (§4.6, §9).
func NewCharDeviceClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := resolveConfig(opts)
	if cfg.transport == nil {
		endpoints := xsconfig.FromContext(ctx)
		cfg.transport = transport.NewCharDevice(endpoints.CharDevicePath)
	}
	return newClient(ctx, cfg.transport)
}

func resolveConfig(opts []Option) clientConfig {
	var cfg clientConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func newClient(ctx context.Context, t transport.Transport) (*Client, error) {
	r := router.New(t)
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("xenstore: starting client: %w", err)
	}

	_, charDevice := t.(*transport.CharDevice)

	refs := int32(1)
	return &Client{
		router:        r,
		controlDomain: xsconfig.IsControlDomain(),
		charDevice:    charDevice,
		refs:          &refs,
	}, nil
}

// clone returns a handle sharing this client's router and ref count, the
// "cheap clone" of §4.5/§9.
func (c *Client) clone() *Client {
	atomic.AddInt32(c.refs, 1)
	return &Client{
		router:        c.router,
		controlDomain: c.controlDomain,
		charDevice:    c.charDevice,
		refs:          c.refs,
	}
}

// Close releases this handle. If a transaction is open with no error in
// flight it is committed first (§5's supplemented close behavior);
// the underlying router is terminated only once the last clone is
// closed.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	txID := c.txID
	c.txID = 0
	c.mu.Unlock()

	if txID != 0 {
		if _, err := c.endTransaction(ctx, txID, true); err != nil {
			log.WithComponent(ctx, "client").WithError(fmt.Errorf("%w: %v", ErrUncommittedTransaction, err)).Debug("xenstore: commit-on-close failed")
		}
	}

	if atomic.AddInt32(c.refs, -1) > 0 {
		return nil
	}

	return c.router.Terminate()
}

// Transaction returns a clone of c with a fresh transaction already
// started, matching pyxs's Client.transaction() convenience (§5).
// c itself is left untouched.
func (c *Client) Transaction(ctx context.Context) (*Client, error) {
	c.mu.Lock()
	if c.txID != 0 {
		c.mu.Unlock()
		return nil, ErrNestedTransaction
	}
	c.mu.Unlock()

	clone := c.clone()

	txID, err := clone.startTransaction(ctx)
	if err != nil {
		clone.Close(ctx)
		return nil, err
	}

	clone.mu.Lock()
	clone.txID = txID
	clone.mu.Unlock()

	return clone, nil
}

// Commit ends the client's active transaction with T\0. Returns false on
// EAGAIN (conflict) rather than an error; tx_id is reset to 0 either way
// (§4.5).
func (c *Client) Commit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	txID := c.txID
	c.txID = 0
	c.mu.Unlock()

	if txID == 0 {
		return false, fmt.Errorf("xenstore: commit with no active transaction")
	}

	return c.endTransaction(ctx, txID, true)
}

// Rollback ends the client's active transaction with F\0.
func (c *Client) Rollback(ctx context.Context) error {
	c.mu.Lock()
	txID := c.txID
	c.txID = 0
	c.mu.Unlock()

	if txID == 0 {
		return fmt.Errorf("xenstore: rollback with no active transaction")
	}

	_, err := c.endTransaction(ctx, txID, false)
	return err
}

func (c *Client) startTransaction(ctx context.Context) (uint32, error) {
	c.mu.Lock()
	if c.txID != 0 {
		c.mu.Unlock()
		return 0, ErrNestedTransaction
	}
	c.mu.Unlock()

	resp, err := c.call(ctx, wire.TransactionStart, 0, nil)
	if err != nil {
		return 0, err
	}

	txID, err := strconv.ParseUint(wire.Argument(resp.Payload), 10, 32)
	if err != nil {
		return 0, &ProtocolError{Reason: fmt.Sprintf("malformed transaction id %q", resp.Payload)}
	}

	return uint32(txID), nil
}

func (c *Client) endTransaction(ctx context.Context, txID uint32, commit bool) (bool, error) {
	flag := "F"
	if commit {
		flag = "T"
	}

	resp, err := c.call(ctx, wire.TransactionEnd, txID, wire.JoinArgs(flag))
	if err != nil {
		if remote, ok := asRemoteError(err); ok && remote.Is(ErrTransactionConflict) {
			return false, nil
		}
		return false, err
	}

	// The daemon signals a commit conflict in-band, as a TRANSACTION_END
	// reply carrying "EAGAIN" in place of "OK" rather than an ERROR
	// packet (§8 scenario 4, §4.5 "commit").
	switch payload := wire.Argument(resp.Payload); payload {
	case "OK":
		return true, nil
	case "EAGAIN":
		return false, nil
	default:
		return false, &ProtocolError{Reason: fmt.Sprintf("TRANSACTION_END: unexpected payload %q", payload)}
	}
}

// Read returns the value stored at path.
func (c *Client) Read(ctx context.Context, path string) (string, error) {
	if err := validate.Path(path); err != nil {
		return "", validationErr("path", path, err)
	}

	resp, err := c.callTx(ctx, wire.Read, wire.JoinArgs(path))
	if err != nil {
		return "", err
	}

	return wire.Argument(resp.Payload), nil
}

// Write stores value at path, creating it (and any missing parent nodes)
// if necessary.
func (c *Client) Write(ctx context.Context, path, value string) error {
	if err := validate.Path(path); err != nil {
		return validationErr("path", path, err)
	}

	payload := append(append([]byte(path), wire.NUL), []byte(value)...)
	return c.ackTx(ctx, wire.Write, payload)
}

// Mkdir creates path if it does not already exist; it is not an error if
// it does.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	if err := validate.Path(path); err != nil {
		return validationErr("path", path, err)
	}

	return c.ackTx(ctx, wire.Mkdir, wire.JoinArgs(path))
}

// Delete removes path and everything beneath it.
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := validate.Path(path); err != nil {
		return validationErr("path", path, err)
	}

	return c.ackTx(ctx, wire.Rm, wire.JoinArgs(path))
}

// List returns the immediate child names of path.
func (c *Client) List(ctx context.Context, path string) ([]string, error) {
	if err := validate.Path(path); err != nil {
		return nil, validationErr("path", path, err)
	}

	resp, err := c.callTx(ctx, wire.Directory, wire.JoinArgs(path))
	if err != nil {
		return nil, err
	}

	return wire.SplitArgs(resp.Payload), nil
}

// GetPermissions returns the permission tokens set on path.
func (c *Client) GetPermissions(ctx context.Context, path string) ([]string, error) {
	if err := validate.Path(path); err != nil {
		return nil, validationErr("path", path, err)
	}

	resp, err := c.callTx(ctx, wire.GetPerms, wire.JoinArgs(path))
	if err != nil {
		return nil, err
	}

	return wire.SplitArgs(resp.Payload), nil
}

// SetPermissions replaces the permission tokens set on path.
func (c *Client) SetPermissions(ctx context.Context, path string, perms []string) error {
	if err := validate.Path(path); err != nil {
		return validationErr("path", path, err)
	}
	for _, p := range perms {
		if err := validate.Permission(p); err != nil {
			return validationErr("permission", p, err)
		}
	}

	args := append([]string{path}, perms...)
	return c.ackTx(ctx, wire.SetPerms, wire.JoinArgs(args...))
}

// GetDomainPath returns the XenStore path backing domain id.
func (c *Client) GetDomainPath(ctx context.Context, id xenlight.Domid) (string, error) {
	resp, err := c.call(ctx, wire.GetDomainPath, 0, wire.JoinArgs(domidString(id)))
	if err != nil {
		return "", err
	}

	return wire.Argument(resp.Payload), nil
}

// IsDomainIntroduced reports whether domain id has been introduced to
// the store.
func (c *Client) IsDomainIntroduced(ctx context.Context, id xenlight.Domid) (bool, error) {
	resp, err := c.call(ctx, wire.IsDomainIntroduced, 0, wire.JoinArgs(domidString(id)))
	if err != nil {
		return false, err
	}

	return wire.Argument(resp.Payload) == "T", nil
}

// IntroduceDomain registers domain id, the machine frame number of its
// XenStore ring page, and its event channel port. Control-domain only;
// id must be nonzero.
func (c *Client) IntroduceDomain(ctx context.Context, id xenlight.Domid, mfn uint64, evtchn uint32) error {
	if id == 0 {
		return &ValidationError{Kind: "domain id", Value: "0", Err: fmt.Errorf("must be nonzero")}
	}
	if err := c.requireControlDomain(); err != nil {
		return err
	}

	payload := wire.JoinArgs(domidString(id), strconv.FormatUint(mfn, 10), strconv.FormatUint(uint64(evtchn), 10))
	return c.ack(ctx, wire.Introduce, payload)
}

// ReleaseDomain releases the store's bookkeeping for domain id.
// Control-domain only.
func (c *Client) ReleaseDomain(ctx context.Context, id xenlight.Domid) error {
	if err := c.requireControlDomain(); err != nil {
		return err
	}
	return c.ack(ctx, wire.Release, wire.JoinArgs(domidString(id)))
}

// ResumeDomain tells the store that domain id has resumed.
// Control-domain only.
func (c *Client) ResumeDomain(ctx context.Context, id xenlight.Domid) error {
	if err := c.requireControlDomain(); err != nil {
		return err
	}
	return c.ack(ctx, wire.Resume, wire.JoinArgs(domidString(id)))
}

// SetTarget tells the store that domain id's target is target.
// Control-domain only.
func (c *Client) SetTarget(ctx context.Context, id, target xenlight.Domid) error {
	if err := c.requireControlDomain(); err != nil {
		return err
	}
	return c.ack(ctx, wire.SetTarget, wire.JoinArgs(domidString(id), domidString(target)))
}

func (c *Client) requireControlDomain() error {
	if !c.controlDomain {
		return &RemoteError{Op: "domain management", Errno: errnoByName["EPERM"]}
	}
	return nil
}

func domidString(id xenlight.Domid) string {
	return strconv.FormatUint(uint64(id), 10)
}

func validationErr(kind, value string, err error) error {
	return &ValidationError{Kind: kind, Value: value, Err: err}
}

// call sends op with an explicit tx_id and interprets the response
// (§4.5, "Response interpretation").
func (c *Client) call(ctx context.Context, op wire.Op, txID uint32, payload []byte) (wire.Packet, error) {
	reqID := router.NextRequestID()

	req, err := wire.NewPacket(op, reqID, txID, payload)
	if err != nil {
		return wire.Packet{}, &ValidationError{Kind: "payload", Value: op.String(), Err: err}
	}

	log.WithComponent(ctx, "client").WithField("op", op.String()).WithField("rq_id", reqID).Trace("xenstore request")

	cell, err := c.router.Send(req)
	if err != nil {
		return wire.Packet{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	resp, err := cell.Wait()
	if err != nil {
		return wire.Packet{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	if resp.Op == wire.Error {
		name := wire.Argument(resp.Payload)
		return wire.Packet{}, &RemoteError{Op: op.String(), Errno: errnoFromPayload(name)}
	}

	if resp.Op != op || resp.TxID != txID {
		return wire.Packet{}, &ProtocolError{
			Reason: fmt.Sprintf("expected op=%s tx_id=%d, got op=%s tx_id=%d", op, txID, resp.Op, resp.TxID),
		}
	}

	return resp, nil
}

// callTx is call with the client's current transaction id.
func (c *Client) callTx(ctx context.Context, op wire.Op, payload []byte) (wire.Packet, error) {
	c.mu.Lock()
	txID := c.txID
	c.mu.Unlock()

	return c.call(ctx, op, txID, payload)
}

// ack sends op with tx_id 0 and requires the literal OK\0 acknowledgement
// payload (§4.5).
func (c *Client) ack(ctx context.Context, op wire.Op, payload []byte) error {
	return c.ackWithTx(ctx, op, 0, payload)
}

// ackTx sends op with the client's current transaction id and requires OK.
func (c *Client) ackTx(ctx context.Context, op wire.Op, payload []byte) error {
	c.mu.Lock()
	txID := c.txID
	c.mu.Unlock()

	return c.ackWithTx(ctx, op, txID, payload)
}

func (c *Client) ackWithTx(ctx context.Context, op wire.Op, txID uint32, payload []byte) error {
	resp, err := c.call(ctx, op, txID, payload)
	if err != nil {
		return err
	}

	if wire.Argument(resp.Payload) != "OK" {
		return &ProtocolError{Reason: fmt.Sprintf("%s: expected OK, got %q", op, resp.Payload)}
	}

	return nil
}

func asRemoteError(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if e, ok := err.(*RemoteError); ok {
		remote = e
		return remote, true
	}
	return nil, false
}
