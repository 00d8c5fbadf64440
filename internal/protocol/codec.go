package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/bigbag/bpnp/internal/frame"
)

// Payload holds decoded field values.
type Payload struct {
	// Fields holds the values of a Fixed layout in declaration order.
	Fields []any
	// Groups holds one slice per group of a Counted layout, in wire order.
	Groups [][]any
	// Text holds the characters of a Text layout.
	Text string
}

// Values flattens the payload into the value list accepted by BuildPayload.
func (p Payload) Values(layout LayoutKind) []any {
	switch layout {
	case Counted:
		var out []any
		for _, g := range p.Groups {
			out = append(out, g...)
		}
		return out
	case Text:
		return []any{p.Text}
	default:
		return p.Fields
	}
}

// Codec encodes and decodes messages using a registry.
type Codec struct {
	reg *Registry
}

// NewCodec creates a Codec for reg.
func NewCodec(reg *Registry) *Codec {
	return &Codec{reg: reg}
}

// Registry returns the registry used by the codec.
func (c *Codec) Registry() *Registry {
	return c.reg
}

// Build assembles the unescaped frame content without checksum:
// type id, sender id and payload.
func (c *Codec) Build(sender, name string, values []any) ([]byte, error) {
	mt, ok := c.reg.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, name)
	}
	s, ok := c.reg.Sender(sender)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSender, sender)
	}

	payload, err := BuildPayload(mt, values)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", mt.Name, err)
	}

	line := make([]byte, 0, 2+len(payload))
	line = append(line, mt.ID, s.ID)
	return append(line, payload...), nil
}

// Encode builds a message and returns its wire frame.
func (c *Codec) Encode(sender, name string, values []any) ([]byte, error) {
	line, err := c.Build(sender, name, values)
	if err != nil {
		return nil, err
	}
	return frame.Encode(frame.Seal(line)), nil
}

// ParseArgs turns command-line arguments into values for Encode. Numbers
// and hex bytes stay strings and are parsed per field kind; a Text layout
// takes all arguments joined by single spaces.
func (c *Codec) ParseArgs(name string, args []string) ([]any, error) {
	mt, ok := c.reg.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, name)
	}
	if mt.Layout == Text {
		return []any{strings.Join(args, " ")}, nil
	}
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a
	}
	return values, nil
}

// Decode interprets a frame returned by the scanner.
func (c *Codec) Decode(f *frame.Frame) (*Message, error) {
	if len(f.Payload) < 2 {
		return nil, fmt.Errorf("%w: %d byte frame", ErrLayoutLengthMismatch, len(f.Payload))
	}
	mt, ok := c.reg.ByID(f.TypeID)
	if !f.Known || !ok {
		return nil, fmt.Errorf("%w: type id 0x%02X", ErrUndefinedPackType, f.TypeID)
	}

	p, err := DecodePayload(mt, f.Body())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mt.Name, err)
	}

	m := &Message{Type: mt, SenderID: f.SenderID(), Payload: p}
	m.Sender, _ = c.reg.SenderName(m.SenderID)
	return m, nil
}

// BuildPayload packs values per the layout of mt.
func BuildPayload(mt *MessageType, values []any) ([]byte, error) {
	switch mt.Layout {
	case Fixed:
		if len(values) != len(mt.Fields) {
			return nil, fmt.Errorf("%w: %d values for %d fields", ErrLayoutLengthMismatch, len(values), len(mt.Fields))
		}
		return packFields(make([]byte, 0, mt.Width()), mt.Fields, values)

	case Counted:
		per := len(mt.Fields)
		if len(values)%per != 0 {
			return nil, fmt.Errorf("%w: %d values is not a multiple of %d", ErrLayoutLengthMismatch, len(values), per)
		}
		n := len(values) / per
		if n > math.MaxUint8 {
			return nil, fmt.Errorf("%w: %d", ErrTooManyGroups, n)
		}
		out := make([]byte, 1, 1+n*mt.GroupSize)
		out[0] = byte(n)
		var err error
		for i := 0; i < len(values); i += per {
			if out, err = packFields(out, mt.Fields, values[i:i+per]); err != nil {
				return nil, fmt.Errorf("group %d: %w", i/per, err)
			}
		}
		return out, nil

	case Text:
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: text takes one value, got %d", ErrLayoutLengthMismatch, len(values))
		}
		s, ok := values[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T for text", ErrInvalidValue, values[0])
		}
		if len(s) > math.MaxUint8 {
			return nil, fmt.Errorf("%w: %d bytes", ErrTextTooLong, len(s))
		}
		out := make([]byte, 0, 1+len(s))
		out = append(out, byte(len(s)))
		return append(out, s...), nil
	}
	return nil, fmt.Errorf("%w: layout %v", ErrInvalidRegistry, mt.Layout)
}

// DecodePayload unpacks body (the bytes after type and sender id) per the
// layout of mt. The body length must match the layout exactly.
func DecodePayload(mt *MessageType, body []byte) (Payload, error) {
	switch mt.Layout {
	case Fixed:
		if len(body) != mt.Width() {
			return Payload{}, fmt.Errorf("%w: %d bytes, want %d", ErrLayoutLengthMismatch, len(body), mt.Width())
		}
		return Payload{Fields: unpackFields(mt.Fields, body)}, nil

	case Counted:
		if len(body) < 1 {
			return Payload{}, fmt.Errorf("%w: missing count", ErrLayoutLengthMismatch)
		}
		n := int(body[0])
		if len(body)-1 != n*mt.GroupSize {
			return Payload{}, fmt.Errorf("%w: %d groups of %d bytes in %d bytes",
				ErrLayoutLengthMismatch, n, mt.GroupSize, len(body)-1)
		}
		groups := make([][]any, n)
		for i := range groups {
			off := 1 + i*mt.GroupSize
			groups[i] = unpackFields(mt.Fields, body[off:off+mt.GroupSize])
		}
		return Payload{Groups: groups}, nil

	case Text:
		if len(body) < 1 {
			return Payload{}, fmt.Errorf("%w: missing length", ErrLayoutLengthMismatch)
		}
		n := int(body[0])
		if len(body)-1 != n {
			return Payload{}, fmt.Errorf("%w: text length %d in %d bytes", ErrLayoutLengthMismatch, n, len(body)-1)
		}
		return Payload{Text: string(body[1:])}, nil
	}
	return Payload{}, fmt.Errorf("%w: layout %v", ErrInvalidRegistry, mt.Layout)
}

func packFields(dst []byte, kinds []FieldKind, values []any) ([]byte, error) {
	var err error
	for i, k := range kinds {
		if dst, err = appendField(dst, k, values[i]); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
	}
	return dst, nil
}

func unpackFields(kinds []FieldKind, b []byte) []any {
	values := make([]any, len(kinds))
	off := 0
	for i, k := range kinds {
		values[i] = decodeField(k, b[off:])
		off += k.Size()
	}
	return values
}
