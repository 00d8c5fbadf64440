package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	types := reg.Types()
	require.Len(t, types, len(BuiltinTypes()))
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1].ID, types[i].ID, "types must be ordered by id")
	}

	for _, mt := range types {
		byID, ok := reg.ByID(mt.ID)
		require.True(t, ok, mt.Name)
		assert.Equal(t, mt.Name, byID.Name)

		byName, ok := reg.ByName(mt.Name)
		require.True(t, ok, mt.Name)
		assert.Equal(t, mt.ID, byName.ID)

		name, ok := reg.TypeName(mt.ID)
		assert.True(t, ok)
		assert.Equal(t, mt.Name, name)
	}

	_, ok := reg.ByName("LID")
	assert.False(t, ok, "LID shares its id with CRD and is not registered")
	_, ok = reg.TypeName(0x99)
	assert.False(t, ok)
}

func TestRegistry_Senders(t *testing.T) {
	reg := MustDefaultRegistry()

	s, ok := reg.Sender("OPERATOR")
	require.True(t, ok)
	assert.Equal(t, byte(0xA6), s.ID)

	s, ok = reg.Sender("BORT")
	require.True(t, ok)
	assert.Equal(t, byte(0xB0), s.ID)

	// shared id resolves to the first registered name
	name, ok := reg.SenderName(0xB0)
	require.True(t, ok)
	assert.Equal(t, "ROBOT", name)

	_, ok = reg.SenderName(0x00)
	assert.False(t, ok)
	_, ok = reg.Sender("operator")
	assert.False(t, ok)

	assert.Len(t, reg.Senders(), 6)
}

func TestRegistry_Immutable(t *testing.T) {
	fields := []FieldKind{U8}
	reg, err := NewRegistry([]MessageType{{ID: 1, Name: "A", Fields: fields}}, nil)
	require.NoError(t, err)

	fields[0] = F32
	mt, _ := reg.ByName("A")
	assert.Equal(t, U8, mt.Fields[0])

	types := reg.Types()
	types[0].Fields[0] = F32
	types[0].Name = "B"
	mt, _ = reg.ByID(1)
	assert.Equal(t, "A", mt.Name)
	assert.Equal(t, U8, mt.Fields[0])
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		types   []MessageType
		senders []Sender
	}{
		{
			name:  "duplicate id",
			types: []MessageType{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}},
		},
		{
			name:  "duplicate name",
			types: []MessageType{{ID: 1, Name: "A"}, {ID: 2, Name: "A"}},
		},
		{
			name:  "empty name",
			types: []MessageType{{ID: 1, Name: " "}},
		},
		{
			name:  "invalid field kind",
			types: []MessageType{{ID: 1, Name: "A", Fields: []FieldKind{FieldKind(42)}}},
		},
		{
			name:  "counted without fields",
			types: []MessageType{{ID: 1, Name: "A", Layout: Counted}},
		},
		{
			name:  "counted group size mismatch",
			types: []MessageType{{ID: 1, Name: "A", Layout: Counted, Fields: []FieldKind{U8, F32}, GroupSize: 9}},
		},
		{
			name:  "invalid layout",
			types: []MessageType{{ID: 1, Name: "A", Layout: LayoutKind(7)}},
		},
		{
			name:    "duplicate sender name",
			senders: []Sender{{ID: 1, Name: "X"}, {ID: 2, Name: "X"}},
		},
		{
			name:    "empty sender name",
			senders: []Sender{{ID: 1}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.types, tc.senders)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
		})
	}
}
