package xenstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/unikraft/go-xenstore/wire"
)

// fakeDaemonNode is one node of the small in-memory tree runFakeDaemon
// answers List/Read requests from, standing in for xenstored for Walk
// tests.
type fakeDaemonNode struct {
	value    string
	children []string
}

func runFakeDaemon(t *testing.T, peer int, tree map[string]fakeDaemonNode, stop <-chan struct{}) {
	t.Helper()

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}

			req, err := wire.Decode(&fakeReader{fd: peer})
			if err != nil {
				return
			}

			path := wire.Argument(req.Payload)
			node, ok := tree[path]

			switch req.Op {
			case wire.Directory:
				if !ok {
					peerSendAsync(t, peer, mustPacket(t, wire.Error, req.ReqID, 0, wire.JoinArgs("ENOENT")))
					continue
				}
				peerSendAsync(t, peer, mustPacket(t, wire.Directory, req.ReqID, 0, wire.JoinArgs(node.children...)))
			case wire.Read:
				if !ok || node.value == "" {
					peerSendAsync(t, peer, mustPacket(t, wire.Error, req.ReqID, 0, wire.JoinArgs("ENOENT")))
					continue
				}
				peerSendAsync(t, peer, mustPacket(t, wire.Read, req.ReqID, 0, wire.JoinArgs(node.value)))
			}
		}
	}()
}

func peerSendAsync(t *testing.T, fd int, p wire.Packet) {
	t.Helper()
	var buf fakeBuf
	require.NoError(t, p.Encode(&buf))
	data := buf.data
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			return
		}
		data = data[n:]
	}
}

func TestClientWalkPreOrder(t *testing.T) {
	c, peer := newTestClient(t)

	tree := map[string]fakeDaemonNode{
		"/":     {value: "", children: []string{"a"}},
		"/a":    {value: "va", children: []string{"b", "c"}},
		"/a/b":  {value: "vb", children: nil},
		"/a/c":  {value: "", children: nil},
	}

	stop := make(chan struct{})
	runFakeDaemon(t, peer, tree, stop)
	defer close(stop)

	var visited []string
	err := c.Walk(context.Background(), "/", PreOrder, func(n Node) bool {
		visited = append(visited, n.Path)
		return true
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/c"}, visited)
}

func TestClientWalkStopsEarly(t *testing.T) {
	c, peer := newTestClient(t)

	tree := map[string]fakeDaemonNode{
		"/":    {value: "", children: []string{"a", "z"}},
		"/a":   {value: "va", children: nil},
		"/z":   {value: "vz", children: nil},
	}

	stop := make(chan struct{})
	runFakeDaemon(t, peer, tree, stop)
	defer close(stop)

	var visited []string
	err := c.Walk(context.Background(), "/", PreOrder, func(n Node) bool {
		visited = append(visited, n.Path)
		return n.Path != "/a"
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/a"}, visited)
}
