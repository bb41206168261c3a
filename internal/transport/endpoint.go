package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// ConnectTimeout fails an attempt still Connecting after this long.
	// Zero leaves attempts pending until the backend reports an outcome.
	ConnectTimeout time.Duration
	Logger         *logrus.Logger
}

// Endpoint owns one node on a Network and at most one channel to a
// remote peer. Status changes and inbound messages are delivered on a
// single goroutine in the order they happened.
type Endpoint struct {
	network Network
	timeout time.Duration
	logger  *logrus.Logger
	queue   *eventQueue

	mu         sync.Mutex
	node       Node
	nodeGen    uint64
	id         string
	conn       Conn
	connGen    uint64
	opened     bool
	cancelDial context.CancelFunc
	status     Status
	lastErr    error
	closed     bool

	onMessage func([]byte)
	onStatus  func(Status)
}

func NewEndpoint(network Network, cfg Config) *Endpoint {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Endpoint{
		network: network,
		timeout: cfg.ConnectTimeout,
		logger:  logger,
		queue:   newEventQueue(),
		status:  Disconnected,
	}
}

func (e *Endpoint) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the last transport error, if any.
func (e *Endpoint) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// ID returns the identifier assigned to this endpoint, or "" while none
// is available.
func (e *Endpoint) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// OnMessage sets the inbound message handler, replacing any previous one.
func (e *Endpoint) OnMessage(h func([]byte)) {
	e.mu.Lock()
	e.onMessage = h
	e.mu.Unlock()
}

// OnStatusChange sets the status handler, replacing any previous one.
func (e *Endpoint) OnStatusChange(h func(Status)) {
	e.mu.Lock()
	e.onStatus = h
	e.mu.Unlock()
}

// CreateEndpoint requests a fresh identifier from the network. Any
// previous node and channel are released first. The outcome is reported
// through status: Disconnected once ID is available, Error otherwise.
func (e *Endpoint) CreateEndpoint(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	oldNode, oldConn, cancel := e.node, e.conn, e.cancelDial
	e.node, e.conn, e.cancelDial = nil, nil, nil
	e.nodeGen++
	e.connGen++
	gen := e.nodeGen
	e.id = ""
	e.opened = false
	e.lastErr = nil
	e.status = Connecting
	e.mu.Unlock()

	e.release(cancel, oldConn, oldNode)
	e.notify(Connecting)

	go func() {
		node, err := e.network.Listen(ctx)
		e.queue.post(func() { e.handleListen(gen, node, err) })
	}()
}

// Connect dials remoteID. It fails only when no endpoint exists; the
// outcome of the attempt is reported through status.
func (e *Endpoint) Connect(remoteID string) error {
	e.mu.Lock()
	if e.node == nil {
		e.lastErr = ErrNotInitialized
		e.mu.Unlock()
		e.logger.Errorf("Failed to connect to %s: %v", remoteID, ErrNotInitialized)
		return ErrNotInitialized
	}

	node, oldConn, oldCancel := e.node, e.conn, e.cancelDial
	ctx, cancel := context.WithCancel(context.Background())
	e.conn = nil
	e.cancelDial = cancel
	e.connGen++
	gen := e.connGen
	e.opened = false
	e.lastErr = nil
	e.status = Connecting
	e.mu.Unlock()

	e.release(oldCancel, oldConn, nil)
	e.logger.Infof("Connecting to peer %s", remoteID)
	e.notify(Connecting)

	go func() {
		conn, err := node.Dial(ctx, remoteID)
		e.queue.post(func() { e.handleDialed(gen, conn, err) })
	}()
	e.armTimeout(gen)

	return nil
}

// Send writes payload to the open channel. It is a no-op when not
// connected.
func (e *Endpoint) Send(payload []byte) {
	e.mu.Lock()
	conn, status := e.conn, e.status
	e.mu.Unlock()

	if status != Connected || conn == nil {
		e.logger.Warn("Cannot send data: not connected")
		return
	}

	if err := conn.Send(payload); err != nil {
		e.logger.Errorf("Failed to send data: %v", err)
		e.mu.Lock()
		e.lastErr = fmt.Errorf("%w: %v", ErrSendFailed, err)
		e.mu.Unlock()
	}
}

// Disconnect closes the current channel, if any. Messages of that
// channel still queued are dropped.
func (e *Endpoint) Disconnect() {
	e.mu.Lock()
	conn, cancel := e.conn, e.cancelDial
	e.conn, e.cancelDial = nil, nil
	e.connGen++
	e.opened = false
	changed := e.status != Disconnected
	e.status = Disconnected
	e.mu.Unlock()

	e.release(cancel, conn, nil)
	if changed {
		e.logger.Info("Disconnected")
		e.notify(Disconnected)
	}
}

// Close releases the channel and the endpoint. It is safe to call more
// than once.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	conn, node, cancel := e.conn, e.node, e.cancelDial
	e.conn, e.node, e.cancelDial = nil, nil, nil
	e.connGen++
	e.nodeGen++
	e.id = ""
	e.opened = false
	changed := e.status != Disconnected
	e.status = Disconnected
	e.mu.Unlock()

	err := e.release(cancel, conn, node)
	if changed {
		e.notify(Disconnected)
	}
	e.queue.stop()
	return err
}

func (e *Endpoint) release(cancel context.CancelFunc, conn Conn, node Node) error {
	if cancel != nil {
		cancel()
	}

	var errs []error
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if node != nil {
		if err := node.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close endpoint: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (e *Endpoint) armTimeout(gen uint64) {
	if e.timeout <= 0 {
		return
	}
	time.AfterFunc(e.timeout, func() {
		e.queue.post(func() { e.handleTimeout(gen) })
	})
}

// notify queues a status callback from outside the event goroutine.
func (e *Endpoint) notify(s Status) {
	e.queue.post(func() { e.emit(s) })
}

// emit runs the status handler. Event goroutine only.
func (e *Endpoint) emit(s Status) {
	e.mu.Lock()
	h := e.onStatus
	e.mu.Unlock()

	if h != nil {
		h(s)
	}
}

func (e *Endpoint) attach(gen uint64, conn Conn) {
	conn.OnOpen(func() {
		e.queue.post(func() { e.handleOpen(gen) })
	})
	conn.OnMessage(func(data []byte) {
		e.queue.post(func() { e.handleMessage(gen, data) })
	})
	conn.OnError(func(err error) {
		e.queue.post(func() { e.handleConnError(gen, err) })
	})
	conn.OnClose(func() {
		e.queue.post(func() { e.handleClose(gen) })
	})
}

func (e *Endpoint) handleListen(gen uint64, node Node, err error) {
	e.mu.Lock()
	if gen != e.nodeGen || e.closed {
		e.mu.Unlock()
		if node != nil {
			_ = node.Close()
		}
		return
	}
	if err != nil {
		e.status = Error
		e.lastErr = err
		e.mu.Unlock()
		e.logger.Errorf("Failed to create endpoint: %v", err)
		e.emit(Error)
		return
	}
	e.mu.Unlock()

	node.OnConnection(func(c Conn) {
		e.queue.post(func() { e.handleIncoming(gen, c) })
	})
	node.OnError(func(err error) {
		e.queue.post(func() { e.handleNodeError(gen, err) })
	})

	e.mu.Lock()
	if gen != e.nodeGen || e.closed {
		e.mu.Unlock()
		_ = node.Close()
		return
	}
	e.node = node
	e.id = node.ID()
	e.status = Disconnected
	e.mu.Unlock()

	e.logger.Infof("Endpoint ready with id %s", node.ID())
	e.emit(Disconnected)
}

func (e *Endpoint) handleIncoming(nodeGen uint64, conn Conn) {
	e.mu.Lock()
	if nodeGen != e.nodeGen || e.closed {
		e.mu.Unlock()
		_ = conn.Close()
		return
	}
	oldConn, cancel := e.conn, e.cancelDial
	e.conn, e.cancelDial = conn, nil
	e.connGen++
	gen := e.connGen
	e.opened = false
	e.lastErr = nil
	e.status = Connecting
	e.mu.Unlock()

	e.release(cancel, oldConn, nil)
	e.logger.Infof("Accepting connection from %s", conn.RemoteID())
	e.emit(Connecting)
	e.attach(gen, conn)
	e.armTimeout(gen)
}

func (e *Endpoint) handleDialed(gen uint64, conn Conn, err error) {
	e.mu.Lock()
	if gen != e.connGen {
		e.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		e.cancelDial = nil
		e.status = Error
		e.lastErr = err
		e.mu.Unlock()
		e.logger.Errorf("Failed to connect: %v", err)
		e.emit(Error)
		return
	}
	e.conn = conn
	e.mu.Unlock()

	e.attach(gen, conn)
}

func (e *Endpoint) handleOpen(gen uint64) {
	e.mu.Lock()
	if gen != e.connGen || e.opened {
		e.mu.Unlock()
		return
	}
	e.opened = true
	e.status = Connected
	remote := ""
	if e.conn != nil {
		remote = e.conn.RemoteID()
	}
	e.mu.Unlock()

	e.logger.Infof("Connected to peer %s", remote)
	e.emit(Connected)
}

func (e *Endpoint) handleMessage(gen uint64, data []byte) {
	// a message implies the channel is open even if its open event has
	// not been processed yet
	e.handleOpen(gen)

	e.mu.Lock()
	if gen != e.connGen {
		e.mu.Unlock()
		return
	}
	h := e.onMessage
	e.mu.Unlock()

	if h == nil {
		e.logger.Debug("Dropping message: no handler registered")
		return
	}
	h(data)
}

func (e *Endpoint) handleClose(gen uint64) {
	e.mu.Lock()
	if gen != e.connGen {
		e.mu.Unlock()
		return
	}
	e.conn, e.cancelDial = nil, nil
	e.connGen++
	e.opened = false
	e.status = Disconnected
	e.mu.Unlock()

	e.logger.Info("Peer closed the connection")
	e.emit(Disconnected)
}

func (e *Endpoint) handleConnError(gen uint64, err error) {
	e.mu.Lock()
	if gen != e.connGen {
		e.mu.Unlock()
		return
	}
	conn, cancel := e.conn, e.cancelDial
	e.conn, e.cancelDial = nil, nil
	e.connGen++
	e.opened = false
	e.status = Error
	e.lastErr = err
	e.mu.Unlock()

	e.release(cancel, conn, nil)
	e.logger.Errorf("Connection error: %v", err)
	e.emit(Error)
}

func (e *Endpoint) handleNodeError(nodeGen uint64, err error) {
	e.mu.Lock()
	if nodeGen != e.nodeGen {
		e.mu.Unlock()
		return
	}
	if e.opened {
		e.mu.Unlock()
		e.logger.Warnf("Signaling error while connected: %v", err)
		return
	}
	e.status = Error
	e.lastErr = err
	e.mu.Unlock()

	e.logger.Errorf("Endpoint error: %v", err)
	e.emit(Error)
}

func (e *Endpoint) handleTimeout(gen uint64) {
	e.mu.Lock()
	if gen != e.connGen || e.status != Connecting {
		e.mu.Unlock()
		return
	}
	conn, cancel := e.conn, e.cancelDial
	e.conn, e.cancelDial = nil, nil
	e.connGen++
	e.status = Error
	e.lastErr = ErrTimeout
	e.mu.Unlock()

	e.release(cancel, conn, nil)
	e.logger.Errorf("Connection attempt timed out after %s", e.timeout)
	e.emit(Error)
}
