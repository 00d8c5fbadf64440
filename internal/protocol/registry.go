package protocol

import (
	"fmt"
	"sort"
)

// Registry maps type ids and names to message types, and role names to
// sender ids. It is immutable once built and safe for concurrent use.
type Registry struct {
	types   []MessageType
	byID    map[byte]*MessageType
	byName  map[string]*MessageType
	senders []Sender
	sByName map[string]Sender
	sByID   map[byte]Sender
}

// NewRegistry validates and indexes types and senders. Type ids and names
// must be unique; sender names must be unique but ids may be shared, in
// which case the first sender listed names the id.
func NewRegistry(types []MessageType, senders []Sender) (*Registry, error) {
	r := &Registry{
		types:   make([]MessageType, len(types)),
		byID:    make(map[byte]*MessageType, len(types)),
		byName:  make(map[string]*MessageType, len(types)),
		senders: append([]Sender(nil), senders...),
		sByName: make(map[string]Sender, len(senders)),
		sByID:   make(map[byte]Sender, len(senders)),
	}

	for i, mt := range types {
		mt.Fields = append([]FieldKind(nil), mt.Fields...)
		if err := mt.validate(); err != nil {
			return nil, err
		}
		r.types[i] = mt
	}
	sort.SliceStable(r.types, func(i, j int) bool { return r.types[i].ID < r.types[j].ID })

	for i := range r.types {
		mt := &r.types[i]
		if prev, ok := r.byID[mt.ID]; ok {
			return nil, fmt.Errorf("%w: type id 0x%02X used by %s and %s", ErrInvalidRegistry, mt.ID, prev.Name, mt.Name)
		}
		if _, ok := r.byName[mt.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate type name %s", ErrInvalidRegistry, mt.Name)
		}
		r.byID[mt.ID] = mt
		r.byName[mt.Name] = mt
	}

	for _, s := range r.senders {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: sender 0x%02X has no name", ErrInvalidRegistry, s.ID)
		}
		if _, ok := r.sByName[s.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate sender name %s", ErrInvalidRegistry, s.Name)
		}
		r.sByName[s.Name] = s
		if _, ok := r.sByID[s.ID]; !ok {
			r.sByID[s.ID] = s
		}
	}

	return r, nil
}

// DefaultRegistry builds the registry of built-in types and senders.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(BuiltinTypes(), BuiltinSenders())
}

// MustDefaultRegistry is DefaultRegistry that panics on error.
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// ByID looks up a message type by id.
func (r *Registry) ByID(id byte) (*MessageType, bool) {
	mt, ok := r.byID[id]
	return mt, ok
}

// ByName looks up a message type by name.
func (r *Registry) ByName(name string) (*MessageType, bool) {
	mt, ok := r.byName[name]
	return mt, ok
}

// TypeName implements frame.TypeResolver.
func (r *Registry) TypeName(id byte) (string, bool) {
	if mt, ok := r.byID[id]; ok {
		return mt.Name, true
	}
	return "", false
}

// Sender looks up a sender by role name.
func (r *Registry) Sender(name string) (Sender, bool) {
	s, ok := r.sByName[name]
	return s, ok
}

// SenderName returns the role name for a sender id.
func (r *Registry) SenderName(id byte) (string, bool) {
	s, ok := r.sByID[id]
	return s.Name, ok
}

// Types returns all message types ordered by id.
func (r *Registry) Types() []MessageType {
	out := make([]MessageType, len(r.types))
	for i, mt := range r.types {
		mt.Fields = append([]FieldKind(nil), mt.Fields...)
		out[i] = mt
	}
	return out
}

// Senders returns all senders in registration order.
func (r *Registry) Senders() []Sender {
	return append([]Sender(nil), r.senders...)
}
