package codec

import "github.com/pkg/errors"

var (
	ErrShortBuffer     = errors.New("codec: short buffer")
	ErrInvalidLength   = errors.New("codec: invalid length field")
	ErrInvalidValue    = errors.New("codec: invalid field value")
	ErrTrailingBytes   = errors.New("codec: trailing bytes")
	ErrUnknownTag      = errors.New("codec: unknown message tag")
	ErrTagMismatch     = errors.New("codec: message tag mismatch")
	ErrPayloadTooLarge = errors.New("codec: payload too large")
)

// CheckMinLength fails when a buffer is shorter than the minimum it must hold.
func CheckMinLength(actual, min int) error {
	if actual < min {
		return errors.Wrapf(ErrShortBuffer, "invalid buffer length: %d < %d", actual, min)
	}
	return nil
}

// Context attaches one layer of decode context ("invalid mask", ...) to err.
// A nil err stays nil.
func Context(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Contextf is Context with a formatted message.
func Contextf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// Cause returns the innermost error of a context chain.
func Cause(err error) error {
	return errors.Cause(err)
}
