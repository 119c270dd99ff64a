// Package classdata provides lazy, zero-copy views over DEX class
// definitions: the class_def_item header, its fixed-stride interface and
// annotation tables, and the delta-encoded field/method streams of the
// class_data_item with their annotation and static-value side channels.
//
// Every accessor constructs fresh iterator state from byte offsets on each
// call; nothing is memoized, and nothing copies out of the shared buffer.
// Independent accessor calls therefore never interfere, even concurrently.
package classdata

import (
	"fmt"

	"dexview/internal/dexfile"
)

// class_def_item field offsets relative to the class def's base offset.
// Every field, member-data offset included, is read at base + offset.
const (
	classIdxOff     = 0
	accessFlagsOff  = 4
	superclassOff   = 8
	interfacesOff   = 12
	sourceFileOff   = 16
	annotationsOff  = 20
	classDataOff    = 24
	staticValuesOff = 28
)

// ClassDef is a lazy view of one class_def_item. The fixed-width header
// fields are decoded eagerly at construction; interfaces, annotations,
// fields, and methods are resolved on each access by dereferencing through
// the shared buffer. A zero offset or index means absent throughout.
type ClassDef struct {
	dex    *dexfile.DexFile
	offset uint32

	name        string
	accessFlags uint32
	superclass  string // "" = no superclass
	sourceFile  string // "" = unknown

	interfacesOffset   uint32
	annotationsOffset  uint32
	classDataOffset    uint32
	staticValuesOffset uint32
}

// NewClassDef reads the class_def_item header at offset.
func NewClassDef(dex *dexfile.DexFile, offset uint32) (*ClassDef, error) {
	c := &ClassDef{dex: dex, offset: offset}

	typeIdx, err := dex.ReadUint32At(offset + classIdxOff)
	if err != nil {
		return nil, fmt.Errorf("classdata: class def at 0x%x: %w", offset, err)
	}
	if c.name, err = dex.TypeNameAt(typeIdx); err != nil {
		return nil, fmt.Errorf("classdata: class def at 0x%x: %w", offset, err)
	}
	if c.accessFlags, err = dex.ReadUint32At(offset + accessFlagsOff); err != nil {
		return nil, err
	}
	superIdx, err := dex.ReadUint32At(offset + superclassOff)
	if err != nil {
		return nil, err
	}
	if c.superclass, err = dex.OptionalTypeNameAt(superIdx); err != nil {
		return nil, fmt.Errorf("classdata: class def at 0x%x: %w", offset, err)
	}
	if c.interfacesOffset, err = dex.ReadUint32At(offset + interfacesOff); err != nil {
		return nil, err
	}
	sourceIdx, err := dex.ReadUint32At(offset + sourceFileOff)
	if err != nil {
		return nil, err
	}
	if c.sourceFile, err = dex.OptionalStringAt(sourceIdx); err != nil {
		return nil, fmt.Errorf("classdata: class def at 0x%x: %w", offset, err)
	}
	if c.annotationsOffset, err = dex.ReadUint32At(offset + annotationsOff); err != nil {
		return nil, err
	}
	if c.classDataOffset, err = dex.ReadUint32At(offset + classDataOff); err != nil {
		return nil, err
	}
	if c.staticValuesOffset, err = dex.ReadUint32At(offset + staticValuesOff); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the class type descriptor, e.g. "Lcom/example/Foo;".
func (c *ClassDef) Name() string { return c.name }

// AccessFlags returns the class access flag bits.
func (c *ClassDef) AccessFlags() uint32 { return c.accessFlags }

// Superclass returns the superclass descriptor, or "" for none.
func (c *ClassDef) Superclass() string { return c.superclass }

// SourceFile returns the declared source file name, or "" for none.
func (c *ClassDef) SourceFile() string { return c.sourceFile }

// Offset returns the class_def_item's base offset.
func (c *ClassDef) Offset() uint32 { return c.offset }

// Interfaces returns a fixed-stride view of the implemented interfaces.
// Empty when the class declares none.
func (c *ClassDef) Interfaces() (*TypeList, error) {
	return NewTypeList(c.dex, c.interfacesOffset)
}

// AnnotationsDirectory returns the class's annotations directory, empty
// when absent.
func (c *ClassDef) AnnotationsDirectory() (*AnnotationsDirectory, error) {
	return NewAnnotationsDirectory(c.dex, c.annotationsOffset)
}

// Annotations returns the class-level annotation set, resolved through the
// annotations directory independently of the member streams.
func (c *ClassDef) Annotations() (*AnnotationSetList, error) {
	dir, err := c.AnnotationsDirectory()
	if err != nil {
		return nil, err
	}
	return dir.ClassAnnotations()
}

// Fields returns the delta-encoded field list, wired to freshly built
// annotation and static-value side channels. Empty when the class has no
// member data or declares zero fields.
func (c *ClassDef) Fields() (*FieldList, error) {
	dir, err := c.AnnotationsDirectory()
	if err != nil {
		return nil, err
	}
	list := &FieldList{dex: c.dex, directory: dir, staticValuesOff: c.staticValuesOffset}
	if c.classDataOffset == 0 {
		return list, nil
	}
	h, err := readClassDataHeader(c.dex, c.classDataOffset)
	if err != nil {
		return nil, err
	}
	list.start = h.membersOff
	list.staticCount = h.staticFields
	list.instanceCount = h.instanceFields
	return list, nil
}

// Methods returns the delta-encoded method list. The method entries begin
// where the field entries end, so construction skips the field stream
// (deltas and flags only; side channels are not consulted here, they
// belong to the field traversal).
func (c *ClassDef) Methods() (*MethodList, error) {
	dir, err := c.AnnotationsDirectory()
	if err != nil {
		return nil, err
	}
	list := &MethodList{dex: c.dex, directory: dir}
	if c.classDataOffset == 0 {
		return list, nil
	}
	h, err := readClassDataHeader(c.dex, c.classDataOffset)
	if err != nil {
		return nil, err
	}
	s := c.dex.ReaderAt(uint32(h.membersOff))
	for i := 0; i < h.staticFields+h.instanceFields; i++ {
		if err := s.SkipUleb128(); err != nil {
			return nil, fmt.Errorf("classdata: skipping field %d: %w", i, err)
		}
		if err := s.SkipUleb128(); err != nil {
			return nil, fmt.Errorf("classdata: skipping field %d: %w", i, err)
		}
	}
	list.start = s.Position()
	list.directCount = h.directMethods
	list.virtualCount = h.virtualMethods
	return list, nil
}

// StaticValues returns a fresh iterator over the class's explicit static
// initial values. Exhausted immediately when the class has none.
func (c *ClassDef) StaticValues() (*StaticValueIterator, error) {
	return NewStaticValueIterator(c.dex, c.staticValuesOffset)
}
