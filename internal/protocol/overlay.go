package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Overlay lists message types and senders added on top of a registry.
//
//	[[message]]
//	id = 0x80
//	name = "BAT"
//	layout = "fixed"
//	fields = ["u16", "f32"]
//
//	[[sender]]
//	id = 0xB4
//	name = "AUX"
type Overlay struct {
	Messages []OverlayMessage `toml:"message"`
	Senders  []OverlaySender  `toml:"sender"`
}

// OverlayMessage is one [[message]] entry.
type OverlayMessage struct {
	ID        int      `toml:"id"`
	Name      string   `toml:"name"`
	Layout    string   `toml:"layout"`
	Fields    []string `toml:"fields"`
	GroupSize int      `toml:"group_size"`
}

// OverlaySender is one [[sender]] entry.
type OverlaySender struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
}

// LoadOverlay reads an overlay file. Unknown keys are rejected.
func LoadOverlay(path string) (*Overlay, error) {
	var o Overlay
	meta, err := toml.DecodeFile(path, &o)
	if err != nil {
		return nil, fmt.Errorf("load overlay: %w", err)
	}
	if err := checkUndecoded(meta); err != nil {
		return nil, fmt.Errorf("load overlay %s: %w", path, err)
	}
	return &o, nil
}

// ParseOverlay parses overlay TOML from a string.
func ParseOverlay(data string) (*Overlay, error) {
	var o Overlay
	meta, err := toml.Decode(data, &o)
	if err != nil {
		return nil, fmt.Errorf("parse overlay: %w", err)
	}
	if err := checkUndecoded(meta); err != nil {
		return nil, fmt.Errorf("parse overlay: %w", err)
	}
	return &o, nil
}

func checkUndecoded(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	sort.Strings(keys)
	return fmt.Errorf("%w: unknown keys %s", ErrInvalidRegistry, strings.Join(keys, ", "))
}

func (o *Overlay) types() ([]MessageType, error) {
	out := make([]MessageType, 0, len(o.Messages))
	for _, m := range o.Messages {
		id, err := overlayID(m.ID, m.Name)
		if err != nil {
			return nil, err
		}
		layout, err := ParseLayoutKind(m.Layout)
		if err != nil {
			return nil, err
		}
		mt := MessageType{ID: id, Name: strings.TrimSpace(m.Name), Layout: layout}
		for _, f := range m.Fields {
			k, err := ParseFieldKind(f)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.Name, err)
			}
			mt.Fields = append(mt.Fields, k)
		}
		if layout == Counted {
			mt.GroupSize = m.GroupSize
			if mt.GroupSize == 0 {
				mt.GroupSize = mt.Width()
			}
		}
		out = append(out, mt)
	}
	return out, nil
}

func (o *Overlay) senders() ([]Sender, error) {
	out := make([]Sender, 0, len(o.Senders))
	for _, s := range o.Senders {
		id, err := overlayID(s.ID, s.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, Sender{ID: id, Name: strings.TrimSpace(s.Name)})
	}
	return out, nil
}

func overlayID(id int, name string) (byte, error) {
	if id < 0 || id > 0xFF {
		return 0, fmt.Errorf("%w: %s id %d is not a byte", ErrInvalidRegistry, name, id)
	}
	return byte(id), nil
}

// Extend returns a new registry holding the entries of r and o.
// Entries of o may not reuse a type id, type name or sender name of r.
func (r *Registry) Extend(o *Overlay) (*Registry, error) {
	if o == nil {
		return r, nil
	}
	types, err := o.types()
	if err != nil {
		return nil, err
	}
	senders, err := o.senders()
	if err != nil {
		return nil, err
	}
	return NewRegistry(append(r.Types(), types...), append(r.Senders(), senders...))
}
