package frame

import (
	"bytes"
	"testing"
)

func TestEncode_NoSpecialBytes(t *testing.T) {
	input := []byte{0x70, 0xA6, 0x6F, 0x6C}
	result := Encode(input)
	expected := []byte{Start, 0x70, 0xA6, 0x6F, 0x6C, Esc, Terminator}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_Empty(t *testing.T) {
	expected := []byte{Start, Esc, Terminator}
	if result := Encode(nil); !bytes.Equal(result, expected) {
		t.Errorf("Encode(nil) = %v, want %v", result, expected)
	}
}

func TestEncode_EscapeMarker(t *testing.T) {
	// LED with value 0x10; the checksum is 0x9C
	input := []byte{0x41, 0xA6, 0x10, 0x9C}
	result := Encode(input)
	expected := []byte{Start, 0x41, 0xA6, Esc, Esc, 0x9C, Esc, Terminator}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_TerminatorNotEscaped(t *testing.T) {
	input := []byte{0x62, 0xB0, 0x03, 0x03}
	result := Encode(input)
	expected := []byte{Start, 0x62, 0xB0, 0x03, 0x03, Esc, Terminator}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%v) = %v, want %v", input, result, expected)
	}
}

func TestEncode_StuffedLength(t *testing.T) {
	testCases := [][]byte{
		{},
		{0x10},
		{0x10, 0x10},
		{0x01, 0x10, 0x02, 0x10, 0x03},
		bytes.Repeat([]byte{0x10}, 64),
		{0x00, 0xFF, 0x03, 0x11, 0x0F},
	}

	for i, tc := range testCases {
		k := bytes.Count(tc, []byte{Esc})
		result := Encode(tc)
		// start marker + content + k escapes + escape/terminator pair
		if len(result) != 1+len(tc)+k+2 {
			t.Errorf("Case %d: len(Encode) = %d, want %d", i, len(result), 1+len(tc)+k+2)
		}
		body := result[1 : len(result)-2]
		if got := bytes.Count(body, []byte{Esc}); got != 2*k {
			t.Errorf("Case %d: escape count = %d, want %d", i, got, 2*k)
		}
	}
}

func TestStuffUnstuff_RoundTrip(t *testing.T) {
	testCases := [][]byte{
		{},
		{0x00},
		{Esc},
		{Esc, Esc, Esc},
		{0x01, Esc, Terminator, Esc, 0x02},
		make([]byte, 256),
	}

	for i, tc := range testCases {
		stuffed := Stuff(tc)
		unstuffed := Unstuff(stuffed)
		if !bytes.Equal(unstuffed, tc) {
			t.Errorf("Case %d: RoundTrip(%v) = %v, want %v", i, tc, unstuffed, tc)
		}
	}
}

func TestUnstuff_TrailingEscape(t *testing.T) {
	result := Unstuff([]byte{0x01, Esc})
	expected := []byte{0x01, Esc}
	if !bytes.Equal(result, expected) {
		t.Errorf("Unstuff trailing escape = %v, want %v", result, expected)
	}
}

func TestEncode_ExactCapacity(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x70, 0xA6, 0x6F, 0x6C},
		{0x10, 0x10, 0x10, 0x10},
		bytes.Repeat([]byte{0x10, 0x03}, 300),
	}
	for _, input := range inputs {
		result := Encode(input)
		if cap(result) != len(result) {
			t.Errorf("Encode(% x): cap = %d, len = %d", input, cap(result), len(result))
		}
		stuffed := Stuff(input)
		if cap(stuffed) != len(stuffed) {
			t.Errorf("Stuff(% x): cap = %d, len = %d", input, cap(stuffed), len(stuffed))
		}
	}
}
