package protocol

import (
	"fmt"
	"strings"
)

// Message is a decoded frame.
type Message struct {
	Type     *MessageType
	SenderID byte
	// Sender is the role name of SenderID, empty if the id is not registered.
	Sender string
	Payload
}

// Values returns the flattened field values, suitable for Codec.Encode.
func (m *Message) Values() []any {
	return m.Payload.Values(m.Type.Layout)
}

// SenderLabel returns the sender name, or its id in hex when unregistered.
func (m *Message) SenderLabel() string {
	if m.Sender != "" {
		return m.Sender
	}
	return fmt.Sprintf("0x%02X", m.SenderID)
}

// String renders the message for display, e.g. "AUD from OPERATOR: 111".
func (m *Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s from %s: ", m.Type.Name, m.SenderLabel())
	switch m.Type.Layout {
	case Counted:
		fmt.Fprintf(&b, "%d group(s)", len(m.Groups))
		for _, g := range m.Groups {
			b.WriteString(" [")
			b.WriteString(FormatValues(g))
			b.WriteString("]")
		}
	case Text:
		fmt.Fprintf(&b, "%q", m.Text)
	default:
		b.WriteString(FormatValues(m.Fields))
	}
	return b.String()
}

// FormatValues renders values separated by spaces.
func FormatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
