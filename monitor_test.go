package xenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unikraft/go-xenstore/wire"
)

func TestMonitorWaitFiltersByWatchedPrefix(t *testing.T) {
	c, peer := newTestClient(t)

	go func() {
		watch := peerRecv(t, peer)
		assert.Equal(t, wire.Watch, watch.Op)
		peerSend(t, peer, mustPacket(t, wire.Watch, watch.ReqID, 0, wire.JoinArgs("OK")))
	}()

	mon, err := c.Monitor(context.Background())
	require.NoError(t, err)

	require.NoError(t, mon.Watch(context.Background(), "/a", "tok"))

	// Delivered directly through the Subscriber interface, bypassing the
	// router, mirrors how the reader loop would dispatch a WATCH_EVENT.
	mon.Notify("/a/b", "tok")

	ev, err := mon.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a/b", ev.Path)
	assert.Equal(t, "tok", ev.Token)
}

func TestMonitorWaitDropsEventOutsideWatchedPrefix(t *testing.T) {
	c, peer := newTestClient(t)

	go func() {
		watch := peerRecv(t, peer)
		peerSend(t, peer, mustPacket(t, wire.Watch, watch.ReqID, 0, wire.JoinArgs("OK")))
	}()

	mon, err := c.Monitor(context.Background())
	require.NoError(t, err)
	require.NoError(t, mon.Watch(context.Background(), "/a", "tok"))

	mon.Notify("/other", "tok")
	mon.Notify("/a/b", "tok")

	done := make(chan wire.Event, 1)
	go func() {
		ev, err := mon.Wait(context.Background())
		require.NoError(t, err)
		done <- ev
	}()

	select {
	case ev := <-done:
		assert.Equal(t, "/a/b", ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return the in-prefix event")
	}
}

func TestMonitorNotAvailableOverCharDevice(t *testing.T) {
	c, _ := newTestClient(t)
	c.charDevice = true

	_, err := c.Monitor(context.Background())
	assert.Error(t, err)
}
