package webrtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/sirupsen/logrus"
)

type connection struct {
	transport.ConnEvents

	remoteID    string
	pc          *webrtc.PeerConnection
	isInitiator bool
	logger      *logrus.Entry
	onRelease   func()

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	closeOnce sync.Once
}

func newConnection(remoteID string, pc *webrtc.PeerConnection, isInitiator bool, logger *logrus.Logger) *connection {
	conn := &connection{
		remoteID:    remoteID,
		pc:          pc,
		isInitiator: isInitiator,
		logger:      logger.WithField("peer", remoteID),
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		conn.logger.Debugf("Peer connection state has changed: %s", s.String())
		switch s {
		case webrtc.PeerConnectionStateFailed:
			conn.FireError(fmt.Errorf("%w: peer connection %s", transport.ErrConnectionFailed, s.String()))
		case webrtc.PeerConnectionStateClosed:
			go conn.Close()
		}
	})

	if !isInitiator {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			conn.logger.Debugf("Received data channel '%s'", dc.Label())
			conn.setupDataChannel(dc)
		})
	}

	return conn
}

func (c *connection) createDataChannel() error {
	dc, err := c.pc.CreateDataChannel(dataChannelLabel, DefaultDataChannelConfig())
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	c.setupDataChannel(dc)
	return nil
}

func (c *connection) setupDataChannel(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.logger.Debugf("Data channel '%s' open", dc.Label())
		c.FireOpen()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.FireMessage(msg.Data)
	})

	dc.OnError(func(err error) {
		c.logger.Errorf("Data channel error: %v", err)
		c.FireError(err)
	})

	dc.OnClose(func() {
		c.logger.Debugf("Data channel '%s' closed", dc.Label())
		go c.Close()
	})
}

// offer creates the local offer and returns its SDP once ICE gathering is
// complete, so no candidates need to be trickled.
func (c *connection) offer(ctx context.Context) (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	return c.setLocal(ctx, offer)
}

// answer applies the remote offer and returns the gathered answer SDP.
func (c *connection) answer(ctx context.Context, sdp string) (string, error) {
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	return c.setLocal(ctx, answer)
}

func (c *connection) setLocal(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	gathered := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *connection) handleAnswer(sdp string) error {
	if !c.isInitiator {
		return fmt.Errorf("unexpected answer from %s", c.remoteID)
	}
	if c.pc.RemoteDescription() != nil {
		return nil
	}
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

func (c *connection) RemoteID() string {
	return c.remoteID
}

func (c *connection) Send(data []byte) error {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("data channel not ready")
	}
	return dc.Send(data)
}

func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.FireClose()

		c.mu.Lock()
		dc := c.dc
		c.mu.Unlock()

		if dc != nil {
			_ = dc.Close()
		}
		err = c.pc.Close()

		if c.onRelease != nil {
			c.onRelease()
		}
	})
	return err
}
