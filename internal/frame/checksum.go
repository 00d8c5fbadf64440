package frame

import "github.com/sigurn/crc8"

// CRC-8: polynomial 0x07, init 0x00, no reflection, no final xor.
var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum computes the frame checksum over data.
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// Seal appends the checksum of [Start]+content to content.
// The result is the input expected by Encode.
func Seal(content []byte) []byte {
	sum := crc8.Update(crc8.Init(crcTable), []byte{Start}, crcTable)
	sum = crc8.Update(sum, content, crcTable)

	result := make([]byte, len(content)+1)
	copy(result, content)
	result[len(content)] = crc8.Complete(sum, crcTable)
	return result
}

// Verify reports whether the last byte of a destuffed frame (start marker
// included) is the checksum of the bytes before it.
func Verify(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	last := len(frame) - 1
	return Checksum(frame[:last]) == frame[last]
}
