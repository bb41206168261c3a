// Package transport establishes a single peer-to-peer data channel and
// reports its lifecycle as a Status.
package transport

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotInitialized   = errors.New("peer not initialized: call CreateEndpoint first")
	ErrPeerUnavailable  = errors.New("peer unavailable")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("connection timed out")
	ErrSendFailed       = errors.New("failed to send data")
	ErrClosed           = errors.New("channel closed")
)

// Network is a backend able to hand out dialable endpoints.
type Network interface {
	Listen(ctx context.Context) (Node, error)
}

// Node is one endpoint registered on a Network.
type Node interface {
	ID() string
	Dial(ctx context.Context, remoteID string) (Conn, error)
	OnConnection(func(Conn))
	OnError(func(error))
	Close() error
}

// Conn is an ordered bidirectional channel between two nodes. Handlers
// may be registered after the events they observe have happened.
type Conn interface {
	RemoteID() string
	Send(data []byte) error
	OnOpen(func())
	OnMessage(func([]byte))
	OnClose(func())
	OnError(func(error))
	Close() error
}

type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
	SignalError  SignalKind = "error"
)

// Signal is a session description exchanged through a signaling service.
// PeerID is the remote side: the target when sending, the source when
// receiving.
type Signal struct {
	PeerID  string
	Kind    SignalKind
	Payload string
}

type Signaler interface {
	ID() string
	SendSignal(ctx context.Context, sig Signal) error
	Signals() <-chan Signal
	io.Closer
}
