package session

import (
	"sync"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
)

// Local is a hotseat game: both players share one board and take turns
// at the same terminal.
type Local struct {
	mu      sync.Mutex
	board   board.Board
	isXNext bool
}

func NewLocal() *Local {
	return &Local{isXNext: true}
}

// Click plays the symbol whose turn it is. Occupied cells and finished
// games are ignored.
func (l *Local) Click(pos int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !board.ValidPosition(pos) || l.board[pos] != board.Empty {
		return false
	}
	if _, won := board.Evaluate(l.board); won {
		return false
	}

	l.board[pos] = board.TurnSymbol(l.isXNext)
	l.isXNext = !l.isXNext
	return true
}

func (l *Local) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.board = board.Board{}
	l.isXNext = true
}

// Snapshot reports the hotseat game in the same shape as a networked
// session; the mover is always "me".
func (l *Local) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := board.Evaluate(l.board)
	return Snapshot{
		Board:         l.board,
		IsXNext:       l.isXNext,
		MySymbol:      board.TurnSymbol(l.isXNext),
		IsMyTurn:      true,
		OpponentReady: true,
		Status:        transport.Connected,
		State:         deriveState(Active, l.board),
		Winner:        win,
		HasWinner:     ok,
	}
}
