// DEX data stream reader.
// Implements the little-endian fixed-width and LEB128 variable-length
// integer encodings used by the Dalvik executable format.
package dexfmt

import (
	"encoding/binary"
	"errors"
)

var (
	ErrTruncated = errors.New("stream: read past end of data")
	ErrOverflow  = errors.New("stream: value too large")
)

// Stream reads DEX data using the format's encoding conventions.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) {
	if pos > s.end {
		pos = s.end
	}
	s.pos = pos
}

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrTruncated
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if s.pos+n > s.end {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// LEB128 encoding constants. Each byte carries 7 bits of data in
// little-endian order; bit 7 set means another byte follows. A 32-bit
// value occupies at most 5 bytes.
const (
	leb128DataBits = 7
	leb128DataMask = (1 << leb128DataBits) - 1 // 0x7f
	leb128MaxBytes = 5
)

// ReadUleb128 reads an unsigned LEB128-encoded value.
//
// Returns ErrTruncated if the encoding does not terminate within the
// buffer and ErrOverflow if it does not fit in 32 bits.
func (s *Stream) ReadUleb128() (uint32, error) {
	var r uint32
	var shift uint
	for i := 0; i < leb128MaxBytes; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == leb128MaxBytes-1 && b > 0x0f {
			return 0, ErrOverflow
		}
		r |= uint32(b&leb128DataMask) << shift
		if b&0x80 == 0 {
			return r, nil
		}
		shift += leb128DataBits
	}
	return 0, ErrOverflow
}

// ReadUleb128p1 reads a ULEB128p1-encoded value: the stored value is the
// logical value plus one, so -1 encodes as 0. Used for optional indices.
func (s *Stream) ReadUleb128p1() (int32, error) {
	v, err := s.ReadUleb128()
	if err != nil {
		return 0, err
	}
	return int32(v) - 1, nil
}

// ReadSleb128 reads a signed LEB128-encoded value.
func (s *Stream) ReadSleb128() (int32, error) {
	var r int32
	var shift uint
	for i := 0; i < leb128MaxBytes; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		r |= int32(b&leb128DataMask) << shift
		shift += leb128DataBits
		if b&0x80 == 0 {
			// Sign-extend from the last data bit.
			if shift < 32 && b&0x40 != 0 {
				r |= -1 << shift
			}
			return r, nil
		}
	}
	return 0, ErrOverflow
}

// SkipUleb128 advances past one ULEB128 value without decoding it.
// Fails exactly where ReadUleb128 would.
func (s *Stream) SkipUleb128() error {
	_, err := s.ReadUleb128()
	return err
}

// Skip advances the position by n bytes.
func (s *Stream) Skip(n int) error {
	if s.pos+n > s.end {
		return ErrTruncated
	}
	s.pos += n
	return nil
}
