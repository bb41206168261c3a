package protocol

import "github.com/rudransh-shrivastava/peer-tac-toe/internal/board"

const (
	MinPosition = 0
	MaxPosition = board.Size - 1
)

type MessageType uint8

const (
	MsgUnknown MessageType = iota
	MsgReady
	MsgMove
	MsgReset
)

func (t MessageType) String() string {
	switch t {
	case MsgReady:
		return "READY"
	case MsgMove:
		return "MOVE"
	case MsgReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// Tag is the value carried in the "type" field on the wire.
func (t MessageType) Tag() string {
	switch t {
	case MsgReady:
		return "ready"
	case MsgMove:
		return "move"
	case MsgReset:
		return "reset"
	default:
		return ""
	}
}

func parseTag(tag string) MessageType {
	switch tag {
	case "ready":
		return MsgReady
	case "move":
		return MsgMove
	case "reset":
		return MsgReset
	default:
		return MsgUnknown
	}
}
