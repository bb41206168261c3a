package session

import (
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
)

type State uint8

const (
	AwaitingConnection State = iota
	AwaitingReady
	Active
	Won
	Draw
)

func (s State) String() string {
	switch s {
	case AwaitingConnection:
		return "awaiting connection"
	case AwaitingReady:
		return "awaiting ready"
	case Active:
		return "active"
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of everything a renderer needs.
type Snapshot struct {
	Board         board.Board
	IsXNext       bool
	MySymbol      board.Cell
	IsMyTurn      bool
	OpponentReady bool
	Status        transport.Status
	State         State
	Winner        board.WinResult
	HasWinner     bool
	LocalID       string
	Err           error
}

// deriveState settles Active into Won or Draw from the board alone.
func deriveState(phase State, b board.Board) State {
	if phase != Active {
		return phase
	}
	if _, ok := board.Evaluate(b); ok {
		return Won
	}
	if b.Full() {
		return Draw
	}
	return Active
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deriveState(s.phase, s.board)
}

func (s *Session) Board() board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

func (s *Session) IsXNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isXNext
}

// MySymbol is Empty until a role is assigned.
func (s *Session) MySymbol() board.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mySymbol
}

func (s *Session) OpponentReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opponentReady
}

func (s *Session) Winner() (board.WinResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return board.Evaluate(s.board)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	win, ok := board.Evaluate(s.board)
	return Snapshot{
		Board:         s.board,
		IsXNext:       s.isXNext,
		MySymbol:      s.mySymbol,
		IsMyTurn:      s.mySymbol != board.Empty && s.mySymbol == board.TurnSymbol(s.isXNext),
		OpponentReady: s.opponentReady,
		Status:        s.status,
		State:         deriveState(s.phase, s.board),
		Winner:        win,
		HasWinner:     ok,
		LocalID:       s.transport.ID(),
		Err:           s.transport.Err(),
	}
}
