package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/sirupsen/logrus"
)

var ErrUnexpectedGreeting = errors.New("signaling server did not assign an id")

// Client is a signaling session. It implements transport.Signaler.
type Client struct {
	id      string
	conn    *websocket.Conn
	logger  *logrus.Logger
	signals chan transport.Signal

	mu        sync.Mutex
	closeOnce sync.Once
}

var _ transport.Signaler = (*Client)(nil)

// Dial connects to the server at url and waits for it to assign an id.
func Dial(ctx context.Context, url string, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	type greeting struct {
		env Envelope
		err error
	}
	greeted := make(chan greeting, 1)
	go func() {
		var env Envelope
		err := conn.ReadJSON(&env)
		greeted <- greeting{env, err}
	}()

	var g greeting
	select {
	case g = <-greeted:
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}

	if g.err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read id: %w", g.err)
	}
	if g.env.Type != TypeID || g.env.ID == "" {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: got %q", ErrUnexpectedGreeting, g.env.Type)
	}

	c := &Client{
		id:      g.env.ID,
		conn:    conn,
		logger:  logger,
		signals: make(chan transport.Signal, 64),
	}
	go c.readLoop()

	logger.Debugf("Registered with signaling server as %s", c.id)
	return c, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) SendSignal(ctx context.Context, sig transport.Signal) error {
	env := Envelope{Type: string(sig.Kind), To: sig.PeerID, Payload: sig.Payload}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(env)
}

// Signals is closed when the session ends.
func (c *Client) Signals() <-chan transport.Signal {
	return c.signals
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.signals)

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.logger.Debugf("Signaling session ended: %v", err)
			return
		}

		switch env.Type {
		case TypeOffer:
			c.signals <- transport.Signal{PeerID: env.From, Kind: transport.SignalOffer, Payload: env.Payload}
		case TypeAnswer:
			c.signals <- transport.Signal{PeerID: env.From, Kind: transport.SignalAnswer, Payload: env.Payload}
		case TypeError:
			c.signals <- transport.Signal{PeerID: env.From, Kind: transport.SignalError, Payload: env.Error}
		default:
			c.logger.Warnf("Unknown signaling message type %q", env.Type)
		}
	}
}
