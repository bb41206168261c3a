package webrtc

import "github.com/pion/webrtc/v3"

const (
	dataChannelLabel    = "data"
	dataChannelProtocol = "tictactoe"
)

var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

func DefaultSTUNConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: defaultSTUNServers},
		},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

// STUNConfig uses the given servers. A nil slice selects the defaults; an
// empty one disables STUN so only host candidates are gathered.
func STUNConfig(servers []string) webrtc.Configuration {
	if servers == nil {
		return DefaultSTUNConfig()
	}

	iceServers := make([]webrtc.ICEServer, 0, len(servers))
	for _, server := range servers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{server}})
	}
	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

func DefaultDataChannelConfig() *webrtc.DataChannelInit {
	protocolName := dataChannelProtocol
	ordered := true
	return &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: nil,
		Protocol:       &protocolName,
	}
}
