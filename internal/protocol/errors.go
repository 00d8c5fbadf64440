package protocol

import "errors"

// Errors returned by the registry and codec. Callers match them with errors.Is.
var (
	ErrUnknownMessageType   = errors.New("protocol: unknown message type")
	ErrUndefinedPackType    = errors.New("protocol: undefined pack type")
	ErrLayoutLengthMismatch = errors.New("protocol: layout length mismatch")
	ErrUnknownSender        = errors.New("protocol: unknown sender")
	ErrInvalidValue         = errors.New("protocol: invalid value")
	ErrValueOutOfRange      = errors.New("protocol: value out of range")
	ErrTextTooLong          = errors.New("protocol: text too long")
	ErrTooManyGroups        = errors.New("protocol: too many groups")
	ErrInvalidRegistry      = errors.New("protocol: invalid registry")
)
