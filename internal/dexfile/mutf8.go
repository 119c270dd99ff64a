package dexfile

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"dexview/internal/dexfmt"
)

// ErrBadString reports an invalid MUTF-8 byte sequence.
var ErrBadString = errors.New("dexfile: invalid mutf-8 sequence")

// decodeMUTF8 reads utf16Len UTF-16 code units of modified UTF-8 from the
// stream. MUTF-8 differs from UTF-8 in two ways: U+0000 is encoded as the
// two-byte sequence C0 80, and supplementary characters are stored as
// CESU-8 surrogate pairs (two 3-byte units) rather than 4-byte sequences.
func decodeMUTF8(s *dexfmt.Stream, utf16Len int) (string, error) {
	units := make([]uint16, 0, utf16Len)
	for i := 0; i < utf16Len; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return "", err
		}
		switch {
		case b&0x80 == 0:
			units = append(units, uint16(b))
		case b&0xe0 == 0xc0:
			b2, err := s.ReadByte()
			if err != nil {
				return "", err
			}
			if b2&0xc0 != 0x80 {
				return "", fmt.Errorf("%w: continuation byte 0x%02x", ErrBadString, b2)
			}
			units = append(units, uint16(b&0x1f)<<6|uint16(b2&0x3f))
		case b&0xf0 == 0xe0:
			b2, err := s.ReadByte()
			if err != nil {
				return "", err
			}
			b3, err := s.ReadByte()
			if err != nil {
				return "", err
			}
			if b2&0xc0 != 0x80 || b3&0xc0 != 0x80 {
				return "", fmt.Errorf("%w: continuation bytes 0x%02x 0x%02x", ErrBadString, b2, b3)
			}
			units = append(units, uint16(b&0x0f)<<12|uint16(b2&0x3f)<<6|uint16(b3&0x3f))
		default:
			return "", fmt.Errorf("%w: leading byte 0x%02x", ErrBadString, b)
		}
	}
	// utf16.Decode pairs up surrogates; unpaired surrogates become U+FFFD,
	// matching how the runtime treats malformed class names.
	return string(utf16.Decode(units)), nil
}
