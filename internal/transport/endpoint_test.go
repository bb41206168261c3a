package transport_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type statusLog struct {
	mu       sync.Mutex
	statuses []transport.Status
}

func (s *statusLog) record(st transport.Status) {
	s.mu.Lock()
	s.statuses = append(s.statuses, st)
	s.mu.Unlock()
}

func (s *statusLog) all() []transport.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Status(nil), s.statuses...)
}

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (i *inbox) handle(b []byte) {
	i.mu.Lock()
	i.msgs = append(i.msgs, string(b))
	i.mu.Unlock()
}

func (i *inbox) all() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs...)
}

func newEndpoint(t *testing.T, n transport.Network, cfg transport.Config) (*transport.Endpoint, *statusLog) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	e := transport.NewEndpoint(n, cfg)
	log := &statusLog{}
	e.OnStatusChange(log.record)
	t.Cleanup(func() { _ = e.Close() })
	return e, log
}

func ready(t *testing.T, e *transport.Endpoint) string {
	t.Helper()
	e.CreateEndpoint(context.Background())
	require.Eventually(t, func() bool { return e.ID() != "" }, waitFor, 5*time.Millisecond)
	return e.ID()
}

func connectPair(t *testing.T) (host, joiner *transport.Endpoint, hostLog, joinerLog *statusLog) {
	t.Helper()
	n := memory.New()
	host, hostLog = newEndpoint(t, n, transport.Config{})
	joiner, joinerLog = newEndpoint(t, n, transport.Config{})

	id := ready(t, host)
	ready(t, joiner)
	require.NoError(t, joiner.Connect(id))

	require.Eventually(t, func() bool {
		return host.Status() == transport.Connected && joiner.Status() == transport.Connected
	}, waitFor, 5*time.Millisecond)
	return host, joiner, hostLog, joinerLog
}

func TestEndpoint_ConnectBeforeCreate(t *testing.T) {
	e, log := newEndpoint(t, memory.New(), transport.Config{})

	err := e.Connect("abc123")
	assert.ErrorIs(t, err, transport.ErrNotInitialized)
	assert.ErrorIs(t, e.Err(), transport.ErrNotInitialized)
	assert.Equal(t, transport.Disconnected, e.Status())
	assert.Empty(t, log.all())
}

func TestEndpoint_CreateEndpoint(t *testing.T) {
	e, log := newEndpoint(t, memory.New(), transport.Config{})

	id := ready(t, e)

	assert.NotEmpty(t, id)
	assert.Equal(t, transport.Disconnected, e.Status())
	require.Eventually(t, func() bool { return len(log.all()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []transport.Status{transport.Connecting, transport.Disconnected}, log.all())
}

func TestEndpoint_CreateEndpointFailure(t *testing.T) {
	boom := errors.New("signaling unreachable")
	e, _ := newEndpoint(t, &stubNetwork{listenErr: boom}, transport.Config{})

	e.CreateEndpoint(context.Background())

	require.Eventually(t, func() bool { return e.Status() == transport.Error }, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, e.Err(), boom)
	assert.Empty(t, e.ID())
	assert.ErrorIs(t, e.Connect("x"), transport.ErrNotInitialized)
}

func TestEndpoint_ConnectAndAutoAccept(t *testing.T) {
	_, _, hostLog, joinerLog := connectPair(t)

	want := []transport.Status{
		transport.Connecting, transport.Disconnected,
		transport.Connecting, transport.Connected,
	}
	require.Eventually(t, func() bool {
		return len(hostLog.all()) == 4 && len(joinerLog.all()) == 4
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, want, hostLog.all())
	assert.Equal(t, want, joinerLog.all())
}

func TestEndpoint_SendAndReceive(t *testing.T) {
	host, joiner, _, _ := connectPair(t)

	var got inbox
	host.OnMessage(got.handle)

	for _, m := range []string{"a", "b", "c"} {
		joiner.Send([]byte(m))
	}

	require.Eventually(t, func() bool { return len(got.all()) == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got.all())
}

func TestEndpoint_OnMessageReplacesHandler(t *testing.T) {
	host, joiner, _, _ := connectPair(t)

	var first, second inbox
	host.OnMessage(first.handle)
	host.OnMessage(second.handle)

	joiner.Send([]byte("hello"))

	require.Eventually(t, func() bool { return len(second.all()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Empty(t, first.all())
}

func TestEndpoint_SendWhenNotConnected(t *testing.T) {
	e, _ := newEndpoint(t, memory.New(), transport.Config{})

	assert.NotPanics(t, func() { e.Send([]byte("ignored")) })
	assert.Equal(t, transport.Disconnected, e.Status())
	assert.NoError(t, e.Err())
}

func TestEndpoint_DisconnectIsIdempotent(t *testing.T) {
	host, joiner, _, _ := connectPair(t)

	joiner.Disconnect()
	joiner.Disconnect()

	assert.Equal(t, transport.Disconnected, joiner.Status())
	require.Eventually(t, func() bool { return host.Status() == transport.Disconnected }, waitFor, 5*time.Millisecond)
	assert.NotEmpty(t, joiner.ID(), "endpoint survives disconnect")
}

func TestEndpoint_DisconnectStopsDelivery(t *testing.T) {
	host, joiner, _, _ := connectPair(t)

	var got inbox
	host.OnMessage(got.handle)
	host.Disconnect()

	joiner.Send([]byte("after"))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got.all())
}

func TestEndpoint_ConnectUnknownPeer(t *testing.T) {
	e, _ := newEndpoint(t, memory.New(), transport.Config{})
	ready(t, e)

	require.NoError(t, e.Connect("nobody"))

	require.Eventually(t, func() bool { return e.Status() == transport.Error }, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, e.Err(), transport.ErrPeerUnavailable)
}

func TestEndpoint_ConnectTimeout(t *testing.T) {
	e, _ := newEndpoint(t, &stubNetwork{}, transport.Config{ConnectTimeout: 20 * time.Millisecond})
	ready(t, e)

	require.NoError(t, e.Connect("slow"))
	assert.Equal(t, transport.Connecting, e.Status())

	require.Eventually(t, func() bool { return e.Status() == transport.Error }, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, e.Err(), transport.ErrTimeout)
}

func TestEndpoint_NoTimeoutByDefault(t *testing.T) {
	e, _ := newEndpoint(t, &stubNetwork{}, transport.Config{})
	ready(t, e)

	require.NoError(t, e.Connect("slow"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, transport.Connecting, e.Status())
}

func TestEndpoint_ConnError(t *testing.T) {
	n := &stubNetwork{}
	e, _ := newEndpoint(t, n, transport.Config{})
	ready(t, e)

	require.NoError(t, e.Connect("remote"))
	conn := n.waitDialed(t)
	conn.FireError(transport.ErrConnectionFailed)

	require.Eventually(t, func() bool { return e.Status() == transport.Error }, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, e.Err(), transport.ErrConnectionFailed)
}

func TestEndpoint_MessageBeforeOpen(t *testing.T) {
	n := &stubNetwork{}
	e, log := newEndpoint(t, n, transport.Config{})
	ready(t, e)

	var got inbox
	e.OnMessage(got.handle)

	require.NoError(t, e.Connect("remote"))
	conn := n.waitDialed(t)
	conn.FireMessage([]byte("early"))
	conn.FireOpen()

	require.Eventually(t, func() bool { return len(got.all()) == 1 }, waitFor, 5*time.Millisecond)
	statuses := log.all()
	assert.Equal(t, transport.Connected, statuses[len(statuses)-1])
	assert.Equal(t, transport.Connected, e.Status())
}

func TestEndpoint_CloseIsIdempotent(t *testing.T) {
	host, joiner, _, _ := connectPair(t)

	require.NoError(t, joiner.Close())
	require.NoError(t, joiner.Close())

	assert.Equal(t, transport.Disconnected, joiner.Status())
	assert.Empty(t, joiner.ID())
	require.Eventually(t, func() bool { return host.Status() == transport.Disconnected }, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, joiner.Connect(host.ID()), transport.ErrNotInitialized)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", transport.Disconnected.String())
	assert.Equal(t, "connecting", transport.Connecting.String())
	assert.Equal(t, "connected", transport.Connected.String())
	assert.Equal(t, "error", transport.Error.String())
	assert.Equal(t, "unknown", transport.Status(9).String())
}

// stubNetwork hands out a node whose channels open only when the test
// says so.
type stubNetwork struct {
	listenErr error

	mu     sync.Mutex
	dialed []*stubConn
}

func (n *stubNetwork) Listen(context.Context) (transport.Node, error) {
	if n.listenErr != nil {
		return nil, n.listenErr
	}
	return &stubNode{network: n}, nil
}

func (n *stubNetwork) waitDialed(t *testing.T) *stubConn {
	t.Helper()
	var c *stubConn
	require.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		if len(n.dialed) == 0 {
			return false
		}
		c = n.dialed[len(n.dialed)-1]
		return true
	}, waitFor, 5*time.Millisecond)
	return c
}

type stubNode struct {
	network *stubNetwork
}

func (s *stubNode) ID() string { return "stub" }

func (s *stubNode) Dial(_ context.Context, remoteID string) (transport.Conn, error) {
	c := &stubConn{remoteID: remoteID}
	s.network.mu.Lock()
	s.network.dialed = append(s.network.dialed, c)
	s.network.mu.Unlock()
	return c, nil
}

func (s *stubNode) OnConnection(func(transport.Conn)) {}
func (s *stubNode) OnError(func(error))               {}
func (s *stubNode) Close() error                      { return nil }

type stubConn struct {
	transport.ConnEvents
	remoteID string
}

func (c *stubConn) RemoteID() string    { return c.remoteID }
func (c *stubConn) Send(_ []byte) error { return nil }
func (c *stubConn) Close() error {
	c.FireClose()
	return nil
}
