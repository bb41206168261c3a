// Package webrtc carries transport channels over WebRTC data channels.
// Session descriptions travel through a transport.Signaler.
package webrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/sirupsen/logrus"
)

var ErrSignalingLost = errors.New("signaling connection lost")

// SignalerFunc opens a signaling session and returns once the service has
// assigned an identifier.
type SignalerFunc func(ctx context.Context) (transport.Signaler, error)

type Config struct {
	// ICEServers overrides the STUN servers; see STUNConfig.
	ICEServers []string
	Logger     *logrus.Logger
}

type Network struct {
	config   webrtc.Configuration
	signaler SignalerFunc
	logger   *logrus.Logger
}

func New(signaler SignalerFunc, cfg Config) *Network {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Network{
		config:   STUNConfig(cfg.ICEServers),
		signaler: signaler,
		logger:   logger,
	}
}

func (n *Network) Listen(ctx context.Context) (transport.Node, error) {
	sig, err := n.signaler(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reach signaling service: %w", err)
	}

	nd := newNode(sig, n.config, n.logger)
	go nd.readSignals()
	return nd, nil
}

type node struct {
	signaler transport.Signaler
	config   webrtc.Configuration
	logger   *logrus.Logger

	mu           sync.Mutex
	connections  map[string]*connection
	onConnection func(transport.Conn)
	onError      func(error)
	pending      []transport.Conn
	closed       bool
}

func newNode(sig transport.Signaler, config webrtc.Configuration, logger *logrus.Logger) *node {
	return &node{
		signaler:    sig,
		config:      config,
		logger:      logger,
		connections: make(map[string]*connection),
	}
}

func (n *node) ID() string {
	return n.signaler.ID()
}

func (n *node) Dial(ctx context.Context, remoteID string) (transport.Conn, error) {
	pc, err := webrtc.NewPeerConnection(n.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	conn := newConnection(remoteID, pc, true, n.logger)
	n.track(conn)

	if err := conn.createDataChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	sdp, err := conn.offer(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	sig := transport.Signal{PeerID: remoteID, Kind: transport.SignalOffer, Payload: sdp}
	if err := n.signaler.SendSignal(ctx, sig); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send offer: %w", err)
	}

	n.logger.Debugf("Sent offer to %s", remoteID)
	return conn, nil
}

func (n *node) OnConnection(h func(transport.Conn)) {
	n.mu.Lock()
	n.onConnection = h
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, c := range pending {
		h(c)
	}
}

func (n *node) OnError(h func(error)) {
	n.mu.Lock()
	n.onError = h
	n.mu.Unlock()
}

func (n *node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	conns := n.connections
	n.connections = make(map[string]*connection)
	n.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return n.signaler.Close()
}

func (n *node) track(conn *connection) {
	conn.onRelease = func() { n.untrack(conn) }

	n.mu.Lock()
	old := n.connections[conn.remoteID]
	n.connections[conn.remoteID] = conn
	n.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

func (n *node) untrack(conn *connection) {
	n.mu.Lock()
	if n.connections[conn.remoteID] == conn {
		delete(n.connections, conn.remoteID)
	}
	n.mu.Unlock()
}

func (n *node) lookup(peerID string) (*connection, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	conn, ok := n.connections[peerID]
	return conn, ok
}

func (n *node) readSignals() {
	for sig := range n.signaler.Signals() {
		n.handleSignal(sig)
	}

	n.mu.Lock()
	closed, h := n.closed, n.onError
	n.mu.Unlock()

	if closed {
		return
	}
	n.logger.Warn("Signaling connection lost")
	if h != nil {
		h(ErrSignalingLost)
	}
}

func (n *node) handleSignal(sig transport.Signal) {
	switch sig.Kind {
	case transport.SignalOffer:
		n.handleOffer(sig)
	case transport.SignalAnswer:
		conn, ok := n.lookup(sig.PeerID)
		if !ok {
			n.logger.Warnf("Received answer from unknown peer %s", sig.PeerID)
			return
		}
		if err := conn.handleAnswer(sig.Payload); err != nil {
			conn.FireError(err)
		}
	case transport.SignalError:
		conn, ok := n.lookup(sig.PeerID)
		if !ok {
			n.logger.Warnf("Signaling error for %s: %s", sig.PeerID, sig.Payload)
			return
		}
		conn.FireError(fmt.Errorf("%w: %s", transport.ErrPeerUnavailable, sig.PeerID))
	default:
		n.logger.Warnf("Unknown signal kind %q from %s", sig.Kind, sig.PeerID)
	}
}

func (n *node) handleOffer(sig transport.Signal) {
	pc, err := webrtc.NewPeerConnection(n.config)
	if err != nil {
		n.logger.Errorf("Failed to create peer connection: %v", err)
		return
	}

	conn := newConnection(sig.PeerID, pc, false, n.logger)
	n.track(conn)
	n.logger.Infof("Received offer from %s", sig.PeerID)

	n.mu.Lock()
	h := n.onConnection
	if h == nil {
		n.pending = append(n.pending, conn)
	}
	n.mu.Unlock()

	if h != nil {
		h(conn)
	}

	go func() {
		ctx := context.Background()
		sdp, err := conn.answer(ctx, sig.Payload)
		if err != nil {
			conn.FireError(err)
			return
		}

		answer := transport.Signal{PeerID: sig.PeerID, Kind: transport.SignalAnswer, Payload: sdp}
		if err := n.signaler.SendSignal(ctx, answer); err != nil {
			conn.FireError(fmt.Errorf("failed to send answer: %w", err))
			return
		}
		n.logger.Debugf("Sent answer to %s", sig.PeerID)
	}()
}
