package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldType     = "type"
	fieldPosition = "position"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Format selects how the {type, position} record is serialized.
type Format uint8

const (
	// FormatProtobuf writes the record as a binary google.protobuf.Struct.
	FormatProtobuf Format = iota
	// FormatJSON writes the record as plain JSON, e.g. {"type":"move","position":4}.
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatProtobuf:
		return "protobuf"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

func ParseFormat(s string) (Format, error) {
	switch s {
	case "protobuf", "proto", "":
		return FormatProtobuf, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown wire format %q", s)
	}
}

type Codec struct {
	format Format
}

func NewCodec() *Codec {
	return &Codec{format: FormatProtobuf}
}

func NewCodecWithFormat(f Format) *Codec {
	return &Codec{format: f}
}

func (c *Codec) Format() Format {
	return c.format
}

func (c *Codec) EncodeToBytes(msg Message) ([]byte, error) {
	fields := map[string]any{fieldType: msg.Type().Tag()}
	switch m := msg.(type) {
	case Move:
		fields[fieldPosition] = m.Position
	case *Move:
		fields[fieldPosition] = m.Position
	case Ready, *Ready, Reset, *Reset:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	if c.format == FormatJSON {
		return protojson.Marshal(s)
	}
	return proto.Marshal(s)
}

func (c *Codec) DecodeFromBytes(data []byte) (Message, error) {
	s := &structpb.Struct{}

	var err error
	if c.format == FormatJSON {
		err = protojson.Unmarshal(data, s)
	} else {
		err = proto.Unmarshal(data, s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fields := s.GetFields()
	tag, ok := fields[fieldType].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch t := parseTag(tag.StringValue); t {
	case MsgReady:
		return Ready{}, nil
	case MsgReset:
		return Reset{}, nil
	case MsgMove:
		pos, err := decodePosition(fields[fieldPosition])
		if err != nil {
			return nil, err
		}
		return Move{Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag.StringValue)
	}
}

func decodePosition(v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: move without position", ErrMalformed)
	}

	p := n.NumberValue
	if p != math.Trunc(p) || p < MinPosition || p > MaxPosition {
		return 0, fmt.Errorf("%w: position %v out of range", ErrMalformed, p)
	}
	return int(p), nil
}
