package protocol

import (
	"fmt"
	"strings"
)

// FieldKind is the wire type of one field. All multi-byte kinds are little-endian.
type FieldKind byte

const (
	U8 FieldKind = iota + 1
	I8
	U16
	I16
	U32
	F16 // IEEE 754 half precision
	F32
	Char // single raw byte, rendered as two hex digits
)

var fieldKindNames = map[FieldKind]string{
	U8:   "u8",
	I8:   "i8",
	U16:  "u16",
	I16:  "i16",
	U32:  "u32",
	F16:  "f16",
	F32:  "f32",
	Char: "char",
}

// Size returns the wire width of the kind in bytes.
func (k FieldKind) Size() int {
	switch k {
	case U8, I8, Char:
		return 1
	case U16, I16, F16:
		return 2
	case U32, F32:
		return 4
	default:
		return 0
	}
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// ParseFieldKind parses a kind name such as "u8" or "f32".
func ParseFieldKind(s string) (FieldKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range fieldKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field kind %q", ErrInvalidRegistry, s)
}

// LayoutKind is the shape of a message payload.
type LayoutKind int

const (
	// Fixed payloads are the declared fields, once.
	Fixed LayoutKind = iota
	// Counted payloads are a count byte followed by that many groups of the declared fields.
	Counted
	// Text payloads are a length byte followed by raw characters.
	Text
)

func (l LayoutKind) String() string {
	switch l {
	case Fixed:
		return "fixed"
	case Counted:
		return "counted"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// ParseLayoutKind parses "fixed", "counted" or "text".
func ParseLayoutKind(s string) (LayoutKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return Fixed, nil
	case "counted":
		return Counted, nil
	case "text":
		return Text, nil
	default:
		return 0, fmt.Errorf("%w: unknown layout %q", ErrInvalidRegistry, s)
	}
}

// MessageType describes one registered message.
type MessageType struct {
	ID     byte
	Name   string
	Layout LayoutKind
	// Fields is the whole payload for Fixed and one group for Counted.
	Fields []FieldKind
	// GroupSize is the byte width of one group; Counted only.
	GroupSize int
}

// Width returns the summed size of the declared fields.
func (m *MessageType) Width() int {
	n := 0
	for _, k := range m.Fields {
		n += k.Size()
	}
	return n
}

// FieldSpec renders the field list, e.g. "u8,f32,f32".
func (m *MessageType) FieldSpec() string {
	names := make([]string, len(m.Fields))
	for i, k := range m.Fields {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

func (m *MessageType) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: type 0x%02X has no name", ErrInvalidRegistry, m.ID)
	}
	for i, k := range m.Fields {
		if k.Size() == 0 {
			return fmt.Errorf("%w: %s field %d has invalid kind %v", ErrInvalidRegistry, m.Name, i, k)
		}
	}
	switch m.Layout {
	case Fixed, Text:
	case Counted:
		if len(m.Fields) == 0 {
			return fmt.Errorf("%w: counted type %s has no group fields", ErrInvalidRegistry, m.Name)
		}
		if m.GroupSize != m.Width() {
			return fmt.Errorf("%w: %s group size %d does not match field width %d",
				ErrInvalidRegistry, m.Name, m.GroupSize, m.Width())
		}
	default:
		return fmt.Errorf("%w: %s has invalid layout %v", ErrInvalidRegistry, m.Name, m.Layout)
	}
	return nil
}

// Sender binds a participant role to its one-byte id.
type Sender struct {
	ID   byte
	Name string
}
