package session_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newPeer(t *testing.T, n *memory.Network) *session.Session {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ep := transport.NewEndpoint(n, transport.Config{Logger: logger})
	s := session.New(ep, session.Config{Logger: logger})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// playing returns a hosting and a joined session that finished the ready
// handshake over an in-memory network.
func playing(t *testing.T) (host, joiner *session.Session) {
	t.Helper()
	n := memory.New()
	host = newPeer(t, n)
	joiner = newPeer(t, n)

	ctx := context.Background()
	require.NoError(t, host.Host(ctx))
	require.Eventually(t, func() bool { return host.Snapshot().LocalID != "" }, waitFor, tick)

	require.NoError(t, joiner.Join(ctx, host.Snapshot().LocalID))

	require.Eventually(t, func() bool {
		return host.OpponentReady() && joiner.OpponentReady()
	}, waitFor, tick)
	return host, joiner
}

func TestSession_Handshake(t *testing.T) {
	host, joiner := playing(t)

	for _, s := range []*session.Session{host, joiner} {
		snap := s.Snapshot()
		assert.Equal(t, transport.Connected, snap.Status)
		assert.Equal(t, session.Active, snap.State)
		assert.Equal(t, board.Board{}, snap.Board)
		assert.True(t, snap.IsXNext)
	}
	assert.Equal(t, board.X, host.MySymbol())
	assert.Equal(t, board.O, joiner.MySymbol())
}

func TestSession_MovePropagates(t *testing.T) {
	host, joiner := playing(t)

	require.True(t, host.AttemptLocalMove(4))

	require.Eventually(t, func() bool { return joiner.Board()[4] == board.X }, waitFor, tick)
	assert.False(t, joiner.IsXNext())
	assert.True(t, joiner.Snapshot().IsMyTurn)
	assert.False(t, host.Snapshot().IsMyTurn)
}

func TestSession_WinOnDiagonal(t *testing.T) {
	host, joiner := playing(t)

	moves := []struct {
		mover, other *session.Session
		pos          int
	}{
		{host, joiner, 0},
		{joiner, host, 1},
		{host, joiner, 4},
		{joiner, host, 2},
		{host, joiner, 8},
	}
	for i, m := range moves {
		require.True(t, m.mover.AttemptLocalMove(m.pos), "move %d", i)
		want := m.mover.Board()
		require.Eventually(t, func() bool { return m.other.Board() == want }, waitFor, tick, "move %d", i)
	}

	for _, s := range []*session.Session{host, joiner} {
		snap := s.Snapshot()
		assert.Equal(t, session.Won, snap.State)
		require.True(t, snap.HasWinner)
		assert.Equal(t, board.X, snap.Winner.Symbol)
		assert.Equal(t, [3]int{0, 4, 8}, snap.Winner.Line)
	}

	assert.False(t, joiner.AttemptLocalMove(5), "no moves after a win")
}

func TestSession_ResetRoundTrip(t *testing.T) {
	host, joiner := playing(t)

	require.True(t, host.AttemptLocalMove(0))
	require.Eventually(t, func() bool { return joiner.Board()[0] == board.X }, waitFor, tick)

	joiner.RequestReset()

	require.Eventually(t, func() bool { return host.Board() == board.Board{} }, waitFor, tick)
	assert.True(t, host.IsXNext())
	assert.Equal(t, session.Active, host.State())
	assert.Equal(t, board.Board{}, joiner.Board())

	// a fresh game starts with X again
	assert.False(t, joiner.AttemptLocalMove(4))
	assert.True(t, host.AttemptLocalMove(4))
}

func TestSession_PeerLeaves(t *testing.T) {
	host, joiner := playing(t)

	joiner.Disconnect()

	require.Eventually(t, func() bool {
		return host.Snapshot().Status == transport.Disconnected
	}, waitFor, tick)
	assert.Equal(t, session.AwaitingConnection, host.State())
	assert.False(t, host.AttemptLocalMove(0))
}

func TestSession_RetryAfterUnknownPeer(t *testing.T) {
	n := memory.New()
	host := newPeer(t, n)
	joiner := newPeer(t, n)
	ctx := context.Background()

	require.NoError(t, host.Host(ctx))
	require.Eventually(t, func() bool { return host.Snapshot().LocalID != "" }, waitFor, tick)

	// a mistyped id leaves the joiner in Error
	require.NoError(t, joiner.Join(ctx, "nosuchid"))
	require.Eventually(t, func() bool { return joiner.Snapshot().Status == transport.Error }, waitFor, tick)
	assert.ErrorIs(t, joiner.Snapshot().Err, transport.ErrPeerUnavailable)

	require.NoError(t, joiner.Connect(host.Snapshot().LocalID))

	require.Eventually(t, func() bool {
		return host.OpponentReady() && joiner.OpponentReady()
	}, waitFor, tick)
	assert.Equal(t, board.O, joiner.MySymbol())
	assert.NoError(t, joiner.Snapshot().Err)
}
