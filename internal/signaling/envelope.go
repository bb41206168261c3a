// Package signaling is the rendezvous service peers use to obtain an
// identifier and exchange session descriptions before the direct channel
// exists.
package signaling

const (
	TypeID     = "id"
	TypeOffer  = "offer"
	TypeAnswer = "answer"
	TypeError  = "error"
)

// ErrPeerUnavailable is the error text sent back when a signal targets an
// unknown peer.
const ErrPeerUnavailable = "peer-unavailable"

// Envelope is the JSON frame exchanged over the websocket.
type Envelope struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}
