package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming marks a byte stream whose message boundaries cannot be reconstructed.
	ErrFraming = errors.New("wire: framing error")

	ErrShortHeader      = fmt.Errorf("%w: short header", ErrFraming)
	ErrFrameSizeInvalid = fmt.Errorf("%w: declared size below header length", ErrFraming)
	ErrFrameTooLarge    = fmt.Errorf("%w: frame exceeds read buffer", ErrFraming)

	ErrMessageTooLarge = errors.New("wire: message too large")
	ErrShortArgument   = errors.New("wire: truncated argument")
	ErrInvalidString   = errors.New("wire: string not nul-terminated")
	ErrTrailingBytes   = errors.New("wire: trailing bytes after last argument")
	ErrMissingFD       = errors.New("wire: no descriptor available for fd argument")
)
