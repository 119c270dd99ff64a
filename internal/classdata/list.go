package classdata

import (
	"fmt"

	"dexview/internal/dexfile"
)

// TypeList is a random-access view over a type_list: a uint32 count
// followed by fixed-stride uint16 type indices. Element offsets are
// computed by arithmetic; the list holds no cursor and is safe for
// concurrent reads.
type TypeList struct {
	dex    *dexfile.DexFile
	offset uint32 // 0 = empty list
	size   int
}

const (
	typeListHeaderSize = 4
	typeListStride     = 2
)

// NewTypeList builds a view over the type_list at offset. Offset 0 yields
// an empty list, per the container's absence convention.
func NewTypeList(dex *dexfile.DexFile, offset uint32) (*TypeList, error) {
	if offset == 0 {
		return &TypeList{dex: dex}, nil
	}
	n, err := dex.ReadUint32At(offset)
	if err != nil {
		return nil, fmt.Errorf("classdata: type list at 0x%x: %w", offset, err)
	}
	return &TypeList{dex: dex, offset: offset, size: int(n)}, nil
}

// Size returns the element count.
func (l *TypeList) Size() int { return l.size }

// Get returns the type index of element i.
func (l *TypeList) Get(i int) (uint32, error) {
	if i < 0 || i >= l.size {
		return 0, fmt.Errorf("%w: type list element %d of %d", ErrIndexOutOfRange, i, l.size)
	}
	v, err := l.dex.ReadUint16At(l.offset + typeListHeaderSize + uint32(i)*typeListStride)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// TypeName resolves element i through the type table.
func (l *TypeList) TypeName(i int) (string, error) {
	idx, err := l.Get(i)
	if err != nil {
		return "", err
	}
	return l.dex.TypeNameAt(idx)
}

// Names resolves every element. Convenience for callers that want the
// whole list; Get/TypeName remain the lazy path.
func (l *TypeList) Names() ([]string, error) {
	if l.size == 0 {
		return nil, nil
	}
	out := make([]string, l.size)
	for i := range out {
		name, err := l.TypeName(i)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}
