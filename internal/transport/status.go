package transport

type Status uint8

const (
	Disconnected Status = iota
	Connecting
	Connected
	Error
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
