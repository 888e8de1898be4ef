package protocol

import "errors"

var (
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUnknownStatus      = errors.New("unknown status")
	ErrKeyTooLong         = errors.New("key too long")
	ErrInvalidKey         = errors.New("key must be ASCII")
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrDataTooLarge       = errors.New("data too large")
)

// IsRecoverable reports whether the stream is still positioned at a frame
// boundary after err, so the next frame can be read.
//
// ErrUnsupportedVersion and ErrMalformedFrame are not recoverable: after a
// foreign version byte the rest of the header layout is unknown, and a key
// length above MaxKeyLength or a negative data length gives no trustworthy
// size to skip, so the reader cannot find the start of the next frame.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrDataTooLarge)
}
