// Package frame implements the link-layer framing of the bpnp serial protocol.
//
// Wire format:
//
//	[0x10] [type-id] [sender-id] [payload...] [crc8] [0x10] [0x03]
//
// Every 0x10 between the start marker and the terminator is doubled on the
// wire. The checksum covers the start marker, type id, sender id and payload.
package frame

import "errors"

// Framing bytes.
const (
	Start      = 0x10 // frame start marker
	Esc        = 0x10 // escape marker, same value as Start
	Terminator = 0x03 // follows an Esc to close a frame
)

// MinFrameLen is the shortest destuffed frame: start, type id, sender id, checksum.
const MinFrameLen = 4

// DefaultMaxFrameLen bounds the destuffed frame buffer.
const DefaultMaxFrameLen = 4096

// Unrecognized is reported as the type name of frames whose id is not registered.
const Unrecognized = "unrecognized"

// Rejection reasons reported by the Scanner.
var (
	ErrFrameTooShort    = errors.New("frame: too short")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrFrameTooLong     = errors.New("frame: too long")
)

// TypeResolver maps a type id to a registered message type name.
type TypeResolver interface {
	TypeName(id byte) (string, bool)
}

// Frame is a frame that passed the checksum.
type Frame struct {
	TypeID byte
	// Name is the registered type name or Unrecognized.
	Name  string
	Known bool
	// Payload starts with the type id and sender id; the checksum is stripped.
	Payload []byte
}

// SenderID returns the sender byte of the frame.
func (f *Frame) SenderID() byte {
	return f.Payload[1]
}

// Body returns the payload bytes after the type and sender prefix.
func (f *Frame) Body() []byte {
	return f.Payload[2:]
}
