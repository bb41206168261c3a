package protocol

type Message interface {
	Type() MessageType
}

// Ready is sent once right after the channel opens.
type Ready struct{}

func (Ready) Type() MessageType { return MsgReady }

type Move struct {
	Position int
}

func (Move) Type() MessageType { return MsgMove }

// Reset is sent whenever either side clears the board.
type Reset struct{}

func (Reset) Type() MessageType { return MsgReset }
