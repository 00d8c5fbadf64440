package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
)

// decodeField unpacks one field from b, which holds at least k.Size() bytes.
//
// Canonical types: U8 uint8, I8 int8, U16 uint16, I16 int16, U32 uint32,
// F16 and F32 float32, Char a two-digit lowercase hex string.
func decodeField(k FieldKind, b []byte) any {
	switch k {
	case U8:
		return b[0]
	case I8:
		return int8(b[0])
	case U16:
		return binary.LittleEndian.Uint16(b)
	case I16:
		return int16(binary.LittleEndian.Uint16(b))
	case U32:
		return binary.LittleEndian.Uint32(b)
	case F16:
		return float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
	case F32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Char:
		return hex.EncodeToString(b[:1])
	}
	return nil
}

// appendField packs v as kind k.
func appendField(dst []byte, k FieldKind, v any) ([]byte, error) {
	switch k {
	case U8, I8, U16, I16, U32:
		lo, hi := intRange(k)
		n, err := toInt(k, v)
		if err != nil {
			return nil, err
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("%w: %d does not fit %v", ErrValueOutOfRange, n, k)
		}
		switch k.Size() {
		case 1:
			return append(dst, byte(n)), nil
		case 2:
			return binary.LittleEndian.AppendUint16(dst, uint16(n)), nil
		default:
			return binary.LittleEndian.AppendUint32(dst, uint32(n)), nil
		}

	case F16:
		f, err := toFloat(k, v)
		if err != nil {
			return nil, err
		}
		h := float16.Fromfloat32(float32(f))
		if h.IsInf(0) && !math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %g does not fit %v", ErrValueOutOfRange, f, k)
		}
		return binary.LittleEndian.AppendUint16(dst, h.Bits()), nil

	case F32:
		f, err := toFloat(k, v)
		if err != nil {
			return nil, err
		}
		if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %g does not fit %v", ErrValueOutOfRange, f, k)
		}
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(f))), nil

	case Char:
		c, err := toChar(v)
		if err != nil {
			return nil, err
		}
		return append(dst, c), nil
	}
	return nil, fmt.Errorf("%w: unsupported field kind %v", ErrInvalidValue, k)
}

func intRange(k FieldKind) (int64, int64) {
	switch k {
	case U8:
		return 0, math.MaxUint8
	case I8:
		return math.MinInt8, math.MaxInt8
	case U16:
		return 0, math.MaxUint16
	case I16:
		return math.MinInt16, math.MaxInt16
	default:
		return 0, math.MaxUint32
	}
}

func toInt(k FieldKind, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a %v", ErrInvalidValue, n, k)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %T for %v", ErrInvalidValue, v, k)
}

func uintToInt(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ErrValueOutOfRange, n)
	}
	return int64(n), nil
}

func toFloat(k FieldKind, v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a %v", ErrInvalidValue, n, k)
		}
		return f, nil
	}
	i, err := toInt(k, v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

// toChar accepts a byte or a hex string of one or two digits ("8e", "0x8e").
func toChar(v any) (byte, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		if len(s) == 0 || len(s) > 2 {
			return 0, fmt.Errorf("%w: %q is not a hex byte", ErrInvalidValue, v)
		}
		b, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a hex byte", ErrInvalidValue, v)
		}
		return byte(b), nil
	}
	n, err := toInt(Char, v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %d does not fit %v", ErrValueOutOfRange, n, Char)
	}
	return byte(n), nil
}
