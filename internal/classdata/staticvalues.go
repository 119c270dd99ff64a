package classdata

import (
	"fmt"

	"dexview/internal/dexfile"
	"dexview/internal/dexfmt"
)

// StaticValueIterator walks an encoded_array_item of static field initial
// values. Alignment is purely positional: the caller steps it exactly once
// per static field in declaration order, and once the backing array is
// exhausted the remaining statics take their type's default value.
type StaticValueIterator struct {
	s         *dexfmt.Stream // nil when the class has no explicit values
	remaining int
}

// NewStaticValueIterator reads the array header at offset. Offset 0 yields
// an exhausted iterator (every static gets the default value).
func NewStaticValueIterator(dex *dexfile.DexFile, offset uint32) (*StaticValueIterator, error) {
	if offset == 0 {
		return &StaticValueIterator{}, nil
	}
	s := dex.ReaderAt(offset)
	n, err := s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: static values at 0x%x: %w", offset, err)
	}
	return &StaticValueIterator{s: s, remaining: int(n)}, nil
}

// Remaining returns how many explicit values are left.
func (it *StaticValueIterator) Remaining() int { return it.remaining }

// NextOrDefault returns the next explicit value, or nil once the backing
// array is exhausted.
func (it *StaticValueIterator) NextOrDefault() (*EncodedValue, error) {
	if it.remaining == 0 {
		return nil, nil
	}
	v, err := ReadEncodedValue(it.s)
	if err != nil {
		return nil, err
	}
	it.remaining--
	return v, nil
}

// SkipNext advances past the next explicit value without materializing it.
// Consumes exactly the bytes NextOrDefault would and fails identically.
func (it *StaticValueIterator) SkipNext() error {
	if it.remaining == 0 {
		return nil
	}
	if err := SkipEncodedValue(it.s); err != nil {
		return err
	}
	it.remaining--
	return nil
}
