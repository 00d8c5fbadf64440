package frame

import "bytes"

// Encode wraps content (type id, sender id, payload and checksum) into a wire
// frame: start marker, stuffed content, escape and terminator.
func Encode(content []byte) []byte {
	result := make([]byte, 0, 1+stuffedLen(content)+2)
	result = append(result, Start)
	result = appendStuffed(result, content)
	result = append(result, Esc, Terminator)
	return result
}

// Stuff doubles every Esc byte in data.
func Stuff(data []byte) []byte {
	return appendStuffed(make([]byte, 0, stuffedLen(data)), data)
}

func stuffedLen(data []byte) int {
	return len(data) + bytes.Count(data, []byte{Esc})
}

func appendStuffed(dst, data []byte) []byte {
	for _, b := range data {
		if b == Esc {
			dst = append(dst, Esc, Esc)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// Unstuff reverses Stuff. A trailing single Esc is kept as-is.
func Unstuff(data []byte) []byte {
	result := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == Esc && i+1 < len(data) && data[i+1] == Esc {
			i++
		}
		result = append(result, data[i])
	}
	return result
}
