// Package session binds a transport channel to a tic-tac-toe board and
// keeps both peers' boards in step.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/protocol"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/sirupsen/logrus"
)

var (
	ErrRoleAssigned    = errors.New("role already assigned")
	ErrNoRole          = errors.New("role not assigned")
	ErrNotConnected    = errors.New("not connected")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidPosition = errors.New("invalid cell index")
	ErrGameOver        = errors.New("game is already decided")
)

// Transport is the channel a Session plays over. *transport.Endpoint
// satisfies it.
type Transport interface {
	CreateEndpoint(ctx context.Context)
	Connect(remoteID string) error
	Send(payload []byte)
	OnMessage(func([]byte))
	OnStatusChange(func(transport.Status))
	Status() transport.Status
	ID() string
	Err() error
	Disconnect()
	Close() error
}

type Config struct {
	Codec  *protocol.Codec
	Logger *logrus.Logger
}

type Session struct {
	transport Transport
	codec     *protocol.Codec
	logger    *logrus.Logger

	mu            sync.Mutex
	board         board.Board
	isXNext       bool
	mySymbol      board.Cell
	opponentReady bool
	phase         State
	status        transport.Status
	joinTarget    string
	onChange      func(Snapshot)
}

// New takes over tr's message and status handlers.
func New(tr Transport, cfg Config) *Session {
	codec := cfg.Codec
	if codec == nil {
		codec = protocol.NewCodec()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Session{
		transport: tr,
		codec:     codec,
		logger:    logger,
		isXNext:   true,
		phase:     AwaitingConnection,
		status:    tr.Status(),
	}
	tr.OnMessage(s.handleMessage)
	tr.OnStatusChange(s.handleStatus)
	return s
}

// AssignRole fixes the local symbol: X for the initiator, O for the
// joiner. It may be called once.
func (s *Session) AssignRole(isInitiator bool) error {
	s.mu.Lock()
	if s.mySymbol != board.Empty {
		s.mu.Unlock()
		return ErrRoleAssigned
	}
	if isInitiator {
		s.mySymbol = board.X
	} else {
		s.mySymbol = board.O
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Host takes the initiator role and requests an endpoint for the joiner
// to dial.
func (s *Session) Host(ctx context.Context) error {
	if err := s.AssignRole(true); err != nil {
		return err
	}
	s.transport.CreateEndpoint(ctx)
	return nil
}

// Join takes the joiner role and dials remoteID as soon as the local
// endpoint is ready.
func (s *Session) Join(ctx context.Context, remoteID string) error {
	if remoteID == "" {
		return fmt.Errorf("join: empty peer id")
	}
	if err := s.AssignRole(false); err != nil {
		return err
	}

	s.mu.Lock()
	s.joinTarget = remoteID
	s.mu.Unlock()

	s.transport.CreateEndpoint(ctx)
	return nil
}

// Connect retries an outbound connection, e.g. after an Error status.
func (s *Session) Connect(remoteID string) error {
	return s.transport.Connect(remoteID)
}

// AttemptLocalMove plays the local symbol at pos. Invalid intents are
// ignored and report false.
func (s *Session) AttemptLocalMove(pos int) bool {
	s.mu.Lock()
	if err := s.validateLocalMove(pos); err != nil {
		s.mu.Unlock()
		s.logger.Debugf("Ignoring move at %d: %v", pos, err)
		return false
	}

	s.board[pos] = s.mySymbol
	s.isXNext = !s.isXNext
	if s.phase == AwaitingReady {
		s.phase = Active
	}
	s.send(protocol.Move{Position: pos})
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Session) validateLocalMove(pos int) error {
	switch {
	case s.status != transport.Connected:
		return ErrNotConnected
	case s.mySymbol == board.Empty:
		return ErrNoRole
	case !board.ValidPosition(pos):
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	case s.hasWinner():
		return ErrGameOver
	case s.mySymbol != board.TurnSymbol(s.isXNext):
		return ErrNotYourTurn
	case s.board[pos] != board.Empty:
		return ErrCellOccupied
	}
	return nil
}

// ApplyRemoteMove writes the symbol whose turn it is at pos and flips the
// turn. The peer is trusted: neither turn nor occupancy is checked.
func (s *Session) ApplyRemoteMove(pos int) {
	if !board.ValidPosition(pos) {
		s.logger.Warnf("Dropping remote move at invalid position %d", pos)
		return
	}

	s.mu.Lock()
	s.board[pos] = board.TurnSymbol(s.isXNext)
	s.isXNext = !s.isXNext
	if s.phase == AwaitingReady {
		s.phase = Active
	}
	s.mu.Unlock()

	s.notify()
}

// RequestReset clears the board locally and tells the peer to do the same.
func (s *Session) RequestReset() {
	s.mu.Lock()
	s.resetLocked()
	s.send(protocol.Reset{})
	s.mu.Unlock()

	s.notify()
}

func (s *Session) OnRemoteReset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.notify()
}

func (s *Session) OnRemoteReady() {
	s.mu.Lock()
	s.opponentReady = true
	if s.phase == AwaitingReady {
		s.phase = Active
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Session) resetLocked() {
	s.board = board.Board{}
	s.isXNext = true
	s.opponentReady = false
	if s.status == transport.Connected {
		s.phase = Active
	}
}

func (s *Session) Disconnect() {
	s.transport.Disconnect()
}

// Close releases the channel and the endpoint.
func (s *Session) Close() error {
	return s.transport.Close()
}

// OnChange sets the observer called after every state change, replacing
// any previous one.
func (s *Session) OnChange(h func(Snapshot)) {
	s.mu.Lock()
	s.onChange = h
	s.mu.Unlock()
}

func (s *Session) handleStatus(st transport.Status) {
	s.mu.Lock()
	prev := s.status
	s.status = st

	switch {
	case st == transport.Connected && prev != transport.Connected:
		s.board = board.Board{}
		s.isXNext = true
		s.opponentReady = false
		s.phase = AwaitingReady
		s.send(protocol.Ready{})
	case st != transport.Connected:
		s.phase = AwaitingConnection
	}

	if st == transport.Disconnected && s.joinTarget != "" && s.transport.ID() != "" {
		target := s.joinTarget
		s.joinTarget = ""
		if err := s.transport.Connect(target); err != nil {
			s.logger.Errorf("Failed to join %s: %v", target, err)
		}
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Session) handleMessage(data []byte) {
	msg, err := s.codec.DecodeFromBytes(data)
	if err != nil {
		s.logger.Warnf("Dropping message: %v", err)
		return
	}

	s.logger.Debugf("Received %s", msg.Type())
	switch m := msg.(type) {
	case protocol.Ready:
		s.OnRemoteReady()
	case protocol.Move:
		s.ApplyRemoteMove(m.Position)
	case protocol.Reset:
		s.OnRemoteReset()
	default:
		s.logger.Warnf("Unhandled message type %s", msg.Type())
	}
}

// send must be called with s.mu held so messages leave in the order their
// state changes were applied.
func (s *Session) send(msg protocol.Message) {
	data, err := s.codec.EncodeToBytes(msg)
	if err != nil {
		s.logger.Errorf("Failed to encode %s: %v", msg.Type(), err)
		return
	}
	s.transport.Send(data)
}

func (s *Session) hasWinner() bool {
	_, ok := board.Evaluate(s.board)
	return ok
}

func (s *Session) notify() {
	s.mu.Lock()
	h := s.onChange
	var snap Snapshot
	if h != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if h != nil {
		h(snap)
	}
}
