package classdata

import (
	"fmt"

	"dexview/internal/dexfile"
)

// Annotation visibility values from annotation_item.
const (
	VisibilityBuild   = 0x00
	VisibilityRuntime = 0x01
	VisibilitySystem  = 0x02
)

// Annotation is one decoded annotation_item.
type Annotation struct {
	Visibility byte
	TypeIndex  uint32
	Elements   []AnnotationElement
}

// AnnotationsDirectory is a view over an annotations_directory_item: the
// class-level annotation set plus sorted (member ordinal, set offset)
// tables for fields, methods, and method parameters. A zero offset is the
// empty directory.
type AnnotationsDirectory struct {
	dex    *dexfile.DexFile
	offset uint32

	classAnnotationsOff uint32
	fieldCount          uint32
	methodCount         uint32
	paramCount          uint32
	fieldsOff           uint32 // absolute offset of field_annotations
	methodsOff          uint32
	paramsOff           uint32
}

const annotationEntrySize = 8 // member index u32 + set offset u32

// NewAnnotationsDirectory reads the directory header at offset.
// Offset 0 yields an empty directory.
func NewAnnotationsDirectory(dex *dexfile.DexFile, offset uint32) (*AnnotationsDirectory, error) {
	d := &AnnotationsDirectory{dex: dex, offset: offset}
	if offset == 0 {
		return d, nil
	}
	var err error
	if d.classAnnotationsOff, err = dex.ReadUint32At(offset); err != nil {
		return nil, fmt.Errorf("classdata: annotations directory at 0x%x: %w", offset, err)
	}
	if d.fieldCount, err = dex.ReadUint32At(offset + 4); err != nil {
		return nil, err
	}
	if d.methodCount, err = dex.ReadUint32At(offset + 8); err != nil {
		return nil, err
	}
	if d.paramCount, err = dex.ReadUint32At(offset + 12); err != nil {
		return nil, err
	}
	d.fieldsOff = offset + 16
	d.methodsOff = d.fieldsOff + d.fieldCount*annotationEntrySize
	d.paramsOff = d.methodsOff + d.methodCount*annotationEntrySize
	return d, nil
}

// ClassAnnotations returns the class-level annotation set.
func (d *AnnotationsDirectory) ClassAnnotations() (*AnnotationSetList, error) {
	return NewAnnotationSetList(d.dex, d.classAnnotationsOff)
}

// FieldAnnotationIterator returns a fresh iterator over the field table.
func (d *AnnotationsDirectory) FieldAnnotationIterator() *AnnotationIterator {
	return &AnnotationIterator{dex: d.dex, base: d.fieldsOff, count: int(d.fieldCount)}
}

// MethodAnnotationIterator returns a fresh iterator over the method table.
func (d *AnnotationsDirectory) MethodAnnotationIterator() *AnnotationIterator {
	return &AnnotationIterator{dex: d.dex, base: d.methodsOff, count: int(d.methodCount)}
}

// ParameterAnnotationIterator returns a fresh iterator over the parameter table.
func (d *AnnotationsDirectory) ParameterAnnotationIterator() *AnnotationIterator {
	return &AnnotationIterator{dex: d.dex, base: d.paramsOff, count: int(d.paramCount)}
}

// AnnotationIterator walks a sorted (member ordinal, set offset) table in
// lockstep with a member stream. It must be stepped once per member the
// stream produces or skips; ordinal matching, not key lookup, keeps the
// two streams aligned.
type AnnotationIterator struct {
	dex   *dexfile.DexFile
	base  uint32
	count int
	pos   int
}

// SeekTo advances past any pending entries below ordinal and consumes a
// matching entry if present, returning its annotation set offset.
// Returns 0 when the member has no annotations.
func (it *AnnotationIterator) SeekTo(ordinal uint32) (uint32, error) {
	for it.pos < it.count {
		entryOff := it.base + uint32(it.pos)*annotationEntrySize
		idx, err := it.dex.ReadUint32At(entryOff)
		if err != nil {
			return 0, fmt.Errorf("classdata: annotation entry %d: %w", it.pos, err)
		}
		if idx < ordinal {
			it.pos++
			continue
		}
		if idx > ordinal {
			return 0, nil
		}
		setOff, err := it.dex.ReadUint32At(entryOff + 4)
		if err != nil {
			return 0, fmt.Errorf("classdata: annotation entry %d: %w", it.pos, err)
		}
		it.pos++
		return setOff, nil
	}
	return 0, nil
}

// AnnotationSetList is a random-access view over an annotation_set_item:
// a uint32 count followed by fixed-stride uint32 annotation_item offsets.
type AnnotationSetList struct {
	dex    *dexfile.DexFile
	offset uint32 // 0 = empty set
	size   int
}

// NewAnnotationSetList builds a view over the set at offset.
// Offset 0 yields an empty set.
func NewAnnotationSetList(dex *dexfile.DexFile, offset uint32) (*AnnotationSetList, error) {
	if offset == 0 {
		return &AnnotationSetList{dex: dex}, nil
	}
	n, err := dex.ReadUint32At(offset)
	if err != nil {
		return nil, fmt.Errorf("classdata: annotation set at 0x%x: %w", offset, err)
	}
	return &AnnotationSetList{dex: dex, offset: offset, size: int(n)}, nil
}

// Size returns the number of annotations in the set.
func (l *AnnotationSetList) Size() int { return l.size }

// Get decodes annotation i.
func (l *AnnotationSetList) Get(i int) (*Annotation, error) {
	if i < 0 || i >= l.size {
		return nil, fmt.Errorf("%w: annotation %d of %d", ErrIndexOutOfRange, i, l.size)
	}
	itemOff, err := l.dex.ReadUint32At(l.offset + 4 + uint32(i)*4)
	if err != nil {
		return nil, err
	}
	s := l.dex.ReaderAt(itemOff)
	visibility, err := s.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("classdata: annotation at 0x%x: %w", itemOff, err)
	}
	payload, err := readAnnotationPayload(s, true)
	if err != nil {
		return nil, err
	}
	return &Annotation{
		Visibility: visibility,
		TypeIndex:  payload.TypeIndex,
		Elements:   payload.Elements,
	}, nil
}

// AnnotationSetAt builds a set view at an arbitrary offset, as recorded in
// a Field or Method. Offset 0 yields an empty set.
func AnnotationSetAt(dex *dexfile.DexFile, offset uint32) (*AnnotationSetList, error) {
	return NewAnnotationSetList(dex, offset)
}
