package classdata

import "errors"

var (
	// ErrIndexOutOfRange reports a list access at or beyond the reported size.
	ErrIndexOutOfRange = errors.New("classdata: index out of range")

	// ErrInconsistentHeader reports declared member counts that cannot fit
	// in the remaining buffer. The counts are surfaced, never repaired:
	// trusting them would desynchronize the annotation and static-value
	// streams for every later member.
	ErrInconsistentHeader = errors.New("classdata: member counts exceed remaining data")

	// ErrMalformedValue reports an encoded value with an invalid size
	// argument for its type.
	ErrMalformedValue = errors.New("classdata: malformed encoded value")
)
