package classdata

import (
	"fmt"

	"dexview/internal/dexfile"
	"dexview/internal/dexfmt"
)

// Field is one decoded field entry. Index is the position in the global
// field table, reconstructed from the cumulative ULEB128 deltas.
type Field struct {
	Index       uint32
	AccessFlags uint32
	IsStatic    bool
	// InitialValue is the explicit static initial value, nil when the field
	// is non-static or takes its type's default.
	InitialValue *EncodedValue
	// AnnotationSetOffset is 0 when the field has no annotations.
	AnnotationSetOffset uint32
}

// Method is one decoded method entry.
type Method struct {
	Index       uint32
	AccessFlags uint32
	IsDirect    bool
	// CodeOffset points at the method's code_item; 0 for abstract and
	// native methods. Instruction decoding is outside this package.
	CodeOffset uint32
	// AnnotationSetOffset is 0 when the method has no annotations.
	AnnotationSetOffset uint32
	// ParameterAnnotationsOffset points at the annotation_set_ref_list for
	// the method's parameters; 0 when absent.
	ParameterAnnotationsOffset uint32
}

// classDataHeader holds the four ULEB128 counts at the head of a
// class_data_item plus the offset where the member entries begin.
type classDataHeader struct {
	staticFields   int
	instanceFields int
	directMethods  int
	virtualMethods int
	membersOff     int
}

// readClassDataHeader decodes the counts at offset and sanity-checks them
// against the remaining buffer: a field entry is at least two bytes, a
// method entry at least three.
func readClassDataHeader(dex *dexfile.DexFile, offset uint32) (classDataHeader, error) {
	s := dex.ReaderAt(offset)
	var h classDataHeader
	counts := []*int{&h.staticFields, &h.instanceFields, &h.directMethods, &h.virtualMethods}
	for i, c := range counts {
		v, err := s.ReadUleb128()
		if err != nil {
			return h, fmt.Errorf("classdata: class data count %d at 0x%x: %w", i, offset, err)
		}
		*c = int(v)
	}
	h.membersOff = s.Position()

	minBytes := (h.staticFields+h.instanceFields)*2 + (h.directMethods+h.virtualMethods)*3
	if minBytes > s.Remaining() {
		return h, fmt.Errorf("%w: %d fields + %d methods declared, %d bytes remain at 0x%x",
			ErrInconsistentHeader, h.staticFields+h.instanceFields,
			h.directMethods+h.virtualMethods, s.Remaining(), offset)
	}
	return h, nil
}

// FieldList presents Size/Get semantics over the delta-encoded field
// stream of one class_data_item. Access is monotonic forward only: Get(i)
// builds a fresh iterator and walks 0..i. The list itself holds no cursor
// and may be shared; each Iterator call yields independent state.
type FieldList struct {
	dex             *dexfile.DexFile
	start           int // offset of the first field entry
	staticCount     int
	instanceCount   int
	directory       *AnnotationsDirectory
	staticValuesOff uint32
}

// Size returns the total field count (static + instance).
func (l *FieldList) Size() int { return l.staticCount + l.instanceCount }

// StaticCount returns the number of static fields (the stream's own
// partition, read once at header time).
func (l *FieldList) StaticCount() int { return l.staticCount }

// Iterator constructs a fresh traversal with freshly wired annotation and
// static-value side channels.
func (l *FieldList) Iterator() (*FieldIterator, error) {
	svIter, err := NewStaticValueIterator(l.dex, l.staticValuesOff)
	if err != nil {
		return nil, err
	}
	return &FieldIterator{
		list:    l,
		s:       l.dex.ReaderAt(uint32(l.start)),
		annIter: l.directory.FieldAnnotationIterator(),
		svIter:  svIter,
	}, nil
}

// Get decodes field i, skipping (but fully accounting for) fields 0..i-1.
func (l *FieldList) Get(i int) (*Field, error) {
	if i < 0 || i >= l.Size() {
		return nil, fmt.Errorf("%w: field %d of %d", ErrIndexOutOfRange, i, l.Size())
	}
	it, err := l.Iterator()
	if err != nil {
		return nil, err
	}
	for k := 0; k < i; k++ {
		if err := it.Skip(); err != nil {
			return nil, err
		}
	}
	return it.Next()
}

// ForEach decodes every field in order.
func (l *FieldList) ForEach(fn func(*Field) error) error {
	it, err := l.Iterator()
	if err != nil {
		return err
	}
	for k := 0; k < l.Size(); k++ {
		f, err := it.Next()
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// FieldIterator is a single monotonic traversal of the field stream.
// Next and Skip share one advancement routine, so both consume identical
// bytes and step the side channels identically; only materialization
// differs. A partially consumed iterator is only good for discarding.
type FieldIterator struct {
	list      *FieldList
	s         *dexfmt.Stream
	index     int
	prevIndex uint32
	annIter   *AnnotationIterator
	svIter    *StaticValueIterator
}

// Next decodes the next field.
func (it *FieldIterator) Next() (*Field, error) {
	return it.advance(true)
}

// Skip advances past the next field without materializing it. The delta is
// still decoded (the running ordinal depends on it) and both side channels
// still step once.
func (it *FieldIterator) Skip() error {
	_, err := it.advance(false)
	return err
}

// Offset returns the cursor position, which after a full traversal is the
// offset of the section following the last field entry.
func (it *FieldIterator) Offset() int { return it.s.Position() }

func (it *FieldIterator) advance(materialize bool) (*Field, error) {
	if it.index >= it.list.Size() {
		return nil, fmt.Errorf("%w: field %d of %d", ErrIndexOutOfRange, it.index, it.list.Size())
	}
	pos := it.s.Position()
	delta, err := it.s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: field %d delta at 0x%x: %w", it.index, pos, err)
	}
	flags, err := it.s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: field %d flags at 0x%x: %w", it.index, pos, err)
	}
	it.prevIndex += delta
	isStatic := it.index < it.list.staticCount
	it.index++

	// Side channels advance exactly once per element on both paths.
	setOff, err := it.annIter.SeekTo(it.prevIndex)
	if err != nil {
		return nil, err
	}
	var value *EncodedValue
	if isStatic {
		if materialize {
			if value, err = it.svIter.NextOrDefault(); err != nil {
				return nil, err
			}
		} else if err = it.svIter.SkipNext(); err != nil {
			return nil, err
		}
	}

	if !materialize {
		return nil, nil
	}
	return &Field{
		Index:               it.prevIndex,
		AccessFlags:         flags,
		IsStatic:            isStatic,
		InitialValue:        value,
		AnnotationSetOffset: setOff,
	}, nil
}

// MethodList presents Size/Get semantics over the delta-encoded method
// stream, which begins immediately after the field entries.
type MethodList struct {
	dex          *dexfile.DexFile
	start        int // offset of the first method entry
	directCount  int
	virtualCount int
	directory    *AnnotationsDirectory
}

// Size returns the total method count (direct + virtual).
func (l *MethodList) Size() int { return l.directCount + l.virtualCount }

// DirectCount returns the number of direct methods.
func (l *MethodList) DirectCount() int { return l.directCount }

// Iterator constructs a fresh traversal with fresh annotation side channels.
func (l *MethodList) Iterator() *MethodIterator {
	return &MethodIterator{
		list:      l,
		s:         l.dex.ReaderAt(uint32(l.start)),
		annIter:   l.directory.MethodAnnotationIterator(),
		paramIter: l.directory.ParameterAnnotationIterator(),
	}
}

// Get decodes method i, skipping (but fully accounting for) methods 0..i-1.
func (l *MethodList) Get(i int) (*Method, error) {
	if i < 0 || i >= l.Size() {
		return nil, fmt.Errorf("%w: method %d of %d", ErrIndexOutOfRange, i, l.Size())
	}
	it := l.Iterator()
	for k := 0; k < i; k++ {
		if err := it.Skip(); err != nil {
			return nil, err
		}
	}
	return it.Next()
}

// ForEach decodes every method in order.
func (l *MethodList) ForEach(fn func(*Method) error) error {
	it := l.Iterator()
	for k := 0; k < l.Size(); k++ {
		m, err := it.Next()
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// MethodIterator is a single monotonic traversal of the method stream.
type MethodIterator struct {
	list      *MethodList
	s         *dexfmt.Stream
	index     int
	prevIndex uint32
	annIter   *AnnotationIterator
	paramIter *AnnotationIterator
}

// Next decodes the next method.
func (it *MethodIterator) Next() (*Method, error) {
	return it.advance(true)
}

// Skip advances past the next method without materializing it.
func (it *MethodIterator) Skip() error {
	_, err := it.advance(false)
	return err
}

// Offset returns the cursor position.
func (it *MethodIterator) Offset() int { return it.s.Position() }

func (it *MethodIterator) advance(materialize bool) (*Method, error) {
	if it.index >= it.list.Size() {
		return nil, fmt.Errorf("%w: method %d of %d", ErrIndexOutOfRange, it.index, it.list.Size())
	}
	pos := it.s.Position()
	delta, err := it.s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: method %d delta at 0x%x: %w", it.index, pos, err)
	}
	flags, err := it.s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: method %d flags at 0x%x: %w", it.index, pos, err)
	}
	codeOff, err := it.s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: method %d code offset at 0x%x: %w", it.index, pos, err)
	}
	it.prevIndex += delta
	isDirect := it.index < it.list.directCount
	it.index++

	setOff, err := it.annIter.SeekTo(it.prevIndex)
	if err != nil {
		return nil, err
	}
	paramOff, err := it.paramIter.SeekTo(it.prevIndex)
	if err != nil {
		return nil, err
	}

	if !materialize {
		return nil, nil
	}
	return &Method{
		Index:                      it.prevIndex,
		AccessFlags:                flags,
		IsDirect:                   isDirect,
		CodeOffset:                 codeOff,
		AnnotationSetOffset:        setOff,
		ParameterAnnotationsOffset: paramOff,
	}, nil
}
