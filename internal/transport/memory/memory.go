// Package memory is an in-process transport.Network. Channels between
// nodes of the same Network open asynchronously and deliver in order.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
)

// betweenOpens runs after the accepting side opens and before the dialing
// side does.
var betweenOpens = func() {}

type Network struct {
	mu    sync.Mutex
	nodes map[string]*node
}

func New() *Network {
	return &Network{nodes: make(map[string]*node)}
}

func (n *Network) Listen(ctx context.Context) (transport.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nd := &node{
		id:      uuid.NewString()[:8],
		network: n,
	}

	n.mu.Lock()
	n.nodes[nd.id] = nd
	n.mu.Unlock()

	return nd, nil
}

// Peers returns the ids currently listening.
func (n *Network) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (n *Network) lookup(id string) (*node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, ok := n.nodes[id]
	return nd, ok
}

func (n *Network) remove(id string) {
	n.mu.Lock()
	delete(n.nodes, id)
	n.mu.Unlock()
}

type node struct {
	id      string
	network *Network

	mu           sync.Mutex
	onConnection func(transport.Conn)
	pending      []transport.Conn
	conns        []*conn
	closed       bool
}

func (nd *node) ID() string {
	return nd.id
}

func (nd *node) Dial(ctx context.Context, remoteID string) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remote, ok := nd.network.lookup(remoteID)
	if !ok || remoteID == nd.id {
		return nil, fmt.Errorf("%w: %s", transport.ErrPeerUnavailable, remoteID)
	}

	local, accepted := newPair(nd.id, remoteID)
	nd.track(local)
	if !remote.accept(accepted) {
		nd.untrack(local)
		return nil, fmt.Errorf("%w: %s", transport.ErrPeerUnavailable, remoteID)
	}

	go func() {
		accepted.FireOpen()
		betweenOpens()
		local.FireOpen()
	}()

	return local, nil
}

func (nd *node) accept(c *conn) bool {
	nd.mu.Lock()
	if nd.closed {
		nd.mu.Unlock()
		return false
	}
	nd.conns = append(nd.conns, c)
	h := nd.onConnection
	if h == nil {
		nd.pending = append(nd.pending, c)
	}
	nd.mu.Unlock()

	if h != nil {
		h(c)
	}
	return true
}

func (nd *node) track(c *conn) {
	nd.mu.Lock()
	nd.conns = append(nd.conns, c)
	nd.mu.Unlock()
}

func (nd *node) untrack(c *conn) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	for i, tracked := range nd.conns {
		if tracked == c {
			nd.conns = append(nd.conns[:i], nd.conns[i+1:]...)
			return
		}
	}
}

func (nd *node) OnConnection(h func(transport.Conn)) {
	nd.mu.Lock()
	nd.onConnection = h
	pending := nd.pending
	nd.pending = nil
	nd.mu.Unlock()

	for _, c := range pending {
		h(c)
	}
}

// OnError is never fired: the in-process network has no signaling to
// lose.
func (nd *node) OnError(func(error)) {}

func (nd *node) Close() error {
	nd.mu.Lock()
	if nd.closed {
		nd.mu.Unlock()
		return nil
	}
	nd.closed = true
	conns := nd.conns
	nd.conns = nil
	nd.mu.Unlock()

	nd.network.remove(nd.id)
	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}

type conn struct {
	transport.ConnEvents

	remoteID string
	peer     *conn
}

func newPair(a, b string) (*conn, *conn) {
	ca := &conn{remoteID: b}
	cb := &conn{remoteID: a}
	ca.peer, cb.peer = cb, ca
	return ca, cb
}

func (c *conn) RemoteID() string {
	return c.remoteID
}

// Send only requires both ends to be unclosed. The dialing side may hear
// from its peer before its own open event fires, and its reply must not be
// lost.
func (c *conn) Send(data []byte) error {
	if c.Closed() || c.peer.Closed() {
		return transport.ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.peer.FireMessage(buf)
	return nil
}

func (c *conn) Close() error {
	if c.FireClose() {
		c.peer.FireClose()
	}
	return nil
}
