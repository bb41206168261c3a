package webrtc

import (
	"testing"

	"github.com/pion/webrtc/v3"
)

func TestDefaultSTUNConfig(t *testing.T) {
	config := DefaultSTUNConfig()

	if len(config.ICEServers) != 1 {
		t.Errorf("expected 1 ICE server group, got %d", len(config.ICEServers))
	}

	if len(config.ICEServers[0].URLs) != 5 {
		t.Errorf("expected 5 STUN URLs, got %d", len(config.ICEServers[0].URLs))
	}

	if config.ICETransportPolicy != webrtc.ICETransportPolicyAll {
		t.Errorf("expected ICETransportPolicyAll")
	}
}

func TestSTUNConfig(t *testing.T) {
	if got := STUNConfig(nil); len(got.ICEServers[0].URLs) != 5 {
		t.Errorf("expected defaults for nil servers, got %v", got.ICEServers)
	}

	if got := STUNConfig([]string{}); len(got.ICEServers) != 0 {
		t.Errorf("expected no ICE servers, got %v", got.ICEServers)
	}

	got := STUNConfig([]string{"stun:a:1", "stun:b:2"})
	if len(got.ICEServers) != 2 || got.ICEServers[1].URLs[0] != "stun:b:2" {
		t.Errorf("unexpected ICE servers %v", got.ICEServers)
	}
}

func TestDefaultDataChannelConfig(t *testing.T) {
	config := DefaultDataChannelConfig()

	if config.Ordered == nil || !*config.Ordered {
		t.Error("expected Ordered to be true")
	}

	if config.MaxRetransmits != nil {
		t.Error("expected MaxRetransmits to be nil (unlimited)")
	}

	if config.Protocol == nil || *config.Protocol != "tictactoe" {
		t.Error("expected Protocol to be 'tictactoe'")
	}
}
