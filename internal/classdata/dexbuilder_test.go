package classdata

import (
	"encoding/binary"
	"testing"

	"dexview/internal/dexfile"
)

// Test fixture assembly. dexBuilder lays out a minimal but structurally
// valid DEX buffer: header, ID tables, class defs, then a data section the
// test appends blobs to. All blob offsets are absolute, so cross-references
// (annotation directories, set lists) can be built naturally.

func u16le(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u32le(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			return append(out, b)
		}
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type fieldIDSpec struct {
	classIdx uint16
	typeIdx  uint16
	nameIdx  uint32
}

type methodIDSpec struct {
	classIdx uint16
	protoIdx uint16
	nameIdx  uint32
}

type protoIDSpec struct {
	shortyIdx     uint32
	returnTypeIdx uint32
	parametersOff uint32
}

type classDefSpec struct {
	classIdx        uint32
	accessFlags     uint32
	superIdx        uint32
	interfacesOff   uint32
	sourceIdx       uint32
	annotationsOff  uint32
	classDataOff    uint32
	staticValuesOff uint32
}

type dexBuilder struct {
	t          *testing.T
	strs       []string
	types      []uint32 // string index per type
	protos     []protoIDSpec
	fields     []fieldIDSpec
	methods    []methodIDSpec
	numClasses int
	classes    []classDefSpec

	dataStart   int
	data        []byte
	strDataOffs []uint32
}

// newDexBuilder fixes the table shapes up front so every data-section
// offset is known before blobs are appended. String data is laid out first.
func newDexBuilder(t *testing.T, strs []string, types []uint32,
	protos []protoIDSpec, fields []fieldIDSpec, methods []methodIDSpec, numClasses int) *dexBuilder {
	t.Helper()
	b := &dexBuilder{
		t: t, strs: strs, types: types,
		protos: protos, fields: fields, methods: methods,
		numClasses: numClasses,
	}
	b.dataStart = dexfile.HeaderSize +
		4*len(strs) + 4*len(types) + 12*len(protos) +
		8*len(fields) + 8*len(methods) + dexfile.ClassDefSize*numClasses
	for _, s := range strs {
		b.strDataOffs = append(b.strDataOffs, uint32(b.dataStart+len(b.data)))
		// ASCII only in fixtures, so utf16 length == byte length.
		b.data = append(b.data, uleb(uint32(len(s)))...)
		b.data = append(b.data, s...)
		b.data = append(b.data, 0)
	}
	return b
}

// append places a blob in the data section and returns its absolute offset.
func (b *dexBuilder) append(blob []byte) uint32 {
	off := uint32(b.dataStart + len(b.data))
	b.data = append(b.data, blob...)
	return off
}

func (b *dexBuilder) addClass(c classDefSpec) {
	b.classes = append(b.classes, c)
}

func (b *dexBuilder) build() []byte {
	b.t.Helper()
	if len(b.classes) != b.numClasses {
		b.t.Fatalf("declared %d classes, added %d", b.numClasses, len(b.classes))
	}

	stringIDsOff := dexfile.HeaderSize
	typeIDsOff := stringIDsOff + 4*len(b.strs)
	protoIDsOff := typeIDsOff + 4*len(b.types)
	fieldIDsOff := protoIDsOff + 12*len(b.protos)
	methodIDsOff := fieldIDsOff + 8*len(b.fields)
	classDefsOff := methodIDsOff + 8*len(b.methods)

	total := b.dataStart + len(b.data)
	out := make([]byte, 0, total)

	// Header.
	hdr := make([]byte, dexfile.HeaderSize)
	copy(hdr, "dex\n035\x00")
	binary.LittleEndian.PutUint32(hdr[0x20:], uint32(total))
	binary.LittleEndian.PutUint32(hdr[0x24:], dexfile.HeaderSize)
	binary.LittleEndian.PutUint32(hdr[0x28:], 0x12345678)
	binary.LittleEndian.PutUint32(hdr[0x38:], uint32(len(b.strs)))
	binary.LittleEndian.PutUint32(hdr[0x3c:], uint32(stringIDsOff))
	binary.LittleEndian.PutUint32(hdr[0x40:], uint32(len(b.types)))
	binary.LittleEndian.PutUint32(hdr[0x44:], uint32(typeIDsOff))
	binary.LittleEndian.PutUint32(hdr[0x48:], uint32(len(b.protos)))
	binary.LittleEndian.PutUint32(hdr[0x4c:], uint32(protoIDsOff))
	binary.LittleEndian.PutUint32(hdr[0x50:], uint32(len(b.fields)))
	binary.LittleEndian.PutUint32(hdr[0x54:], uint32(fieldIDsOff))
	binary.LittleEndian.PutUint32(hdr[0x58:], uint32(len(b.methods)))
	binary.LittleEndian.PutUint32(hdr[0x5c:], uint32(methodIDsOff))
	binary.LittleEndian.PutUint32(hdr[0x60:], uint32(len(b.classes)))
	binary.LittleEndian.PutUint32(hdr[0x64:], uint32(classDefsOff))
	binary.LittleEndian.PutUint32(hdr[0x68:], uint32(len(b.data)))
	binary.LittleEndian.PutUint32(hdr[0x6c:], uint32(b.dataStart))
	out = append(out, hdr...)

	for _, off := range b.strDataOffs {
		out = append(out, u32le(off)...)
	}
	for _, strIdx := range b.types {
		out = append(out, u32le(strIdx)...)
	}
	for _, p := range b.protos {
		out = append(out, u32le(p.shortyIdx)...)
		out = append(out, u32le(p.returnTypeIdx)...)
		out = append(out, u32le(p.parametersOff)...)
	}
	for _, f := range b.fields {
		out = append(out, u16le(f.classIdx)...)
		out = append(out, u16le(f.typeIdx)...)
		out = append(out, u32le(f.nameIdx)...)
	}
	for _, m := range b.methods {
		out = append(out, u16le(m.classIdx)...)
		out = append(out, u16le(m.protoIdx)...)
		out = append(out, u32le(m.nameIdx)...)
	}
	for _, c := range b.classes {
		out = append(out, u32le(c.classIdx)...)
		out = append(out, u32le(c.accessFlags)...)
		out = append(out, u32le(c.superIdx)...)
		out = append(out, u32le(c.interfacesOff)...)
		out = append(out, u32le(c.sourceIdx)...)
		out = append(out, u32le(c.annotationsOff)...)
		out = append(out, u32le(c.classDataOff)...)
		out = append(out, u32le(c.staticValuesOff)...)
	}
	if len(out) != b.dataStart {
		b.t.Fatalf("section layout drifted: tables end at 0x%x, want 0x%x", len(out), b.dataStart)
	}
	return append(out, b.data...)
}

// Blob helpers.

func typeListBlob(indices ...uint16) []byte {
	blob := u32le(uint32(len(indices)))
	for _, idx := range indices {
		blob = append(blob, u16le(idx)...)
	}
	return blob
}

func annotationSetBlob(itemOffs ...uint32) []byte {
	blob := u32le(uint32(len(itemOffs)))
	for _, off := range itemOffs {
		blob = append(blob, u32le(off)...)
	}
	return blob
}

type annEntry struct {
	memberIdx uint32
	setOff    uint32
}

func annotationsDirectoryBlob(classSetOff uint32, fields, methods, params []annEntry) []byte {
	blob := cat(u32le(classSetOff),
		u32le(uint32(len(fields))), u32le(uint32(len(methods))), u32le(uint32(len(params))))
	for _, lst := range [][]annEntry{fields, methods, params} {
		for _, e := range lst {
			blob = append(blob, u32le(e.memberIdx)...)
			blob = append(blob, u32le(e.setOff)...)
		}
	}
	return blob
}

// fixture is the canonical test class layout shared by most tests:
//
//	class LFoo; extends Ljava/lang/Object; implements [type 5, type 9]
//	  static fields:   deltas [3, 1] flags [0x8, 0x9]  → ordinals 3, 4
//	  instance fields: delta  [1]    flags [0x2]       → ordinal 5
//	  direct methods:  delta  [1]    flags [0x10001]   → ordinal 1, code 0x100
//	  virtual methods: deltas [1, 1] flags [0x1, 0x1]  → ordinals 2, 3
//	                   (the running ordinal carries across the sublists)
//	  static values:   [int 7]  (second static takes the default)
//	  annotations:     class set; field ordinal 4; method ordinal 2
//	class LBar;: every optional header field zero
type fixture struct {
	dex          *dexfile.DexFile
	fooOff       uint32 // class def offsets
	barOff       uint32
	classDataOff uint32
	classDataLen int
	annSetOff    uint32
}

func buildFixture(t *testing.T) *fixture {
	t.Helper()
	strs := []string{
		"",                     // 0: absent sentinel
		"LFoo;",                // 1
		"Ljava/lang/Object;",   // 2
		"Ljava/lang/Runnable;", // 3
		"Ljava/io/Closeable;",  // 4
		"Foo.java",             // 5
		"countA",               // 6
		"countB",               // 7
		"name",                 // 8
		"<init>",               // 9
		"run",                  // 10
		"close",                // 11
		"LAnno;",               // 12
		"value",                // 13
		"V",                    // 14: shorty
		"LBar;",                // 15
	}
	types := []uint32{0, 1, 2, 12, 15, 3, 2, 2, 2, 4}
	protos := []protoIDSpec{{shortyIdx: 14, returnTypeIdx: 0}}
	fields := []fieldIDSpec{
		{1, 2, 6}, {1, 2, 6}, {1, 2, 6},
		{1, 2, 6}, // 3: countA
		{1, 2, 7}, // 4: countB
		{1, 2, 8}, // 5: name
	}
	methods := []methodIDSpec{
		{1, 0, 9},
		{1, 0, 9},  // 1: <init>
		{1, 0, 10}, // 2: run
		{1, 0, 11}, // 3: close
	}

	b := newDexBuilder(t, strs, types, protos, fields, methods, 2)

	ifaceOff := b.append(typeListBlob(5, 9))

	// Annotation item: runtime-visible LAnno;(value = string index 1).
	annItemOff := b.append(cat(
		[]byte{VisibilityRuntime},
		uleb(3),               // type index
		uleb(1),               // element count
		uleb(13),              // element name
		[]byte{0x17}, uleb(1), // string value, index 1
	))
	annSetOff := b.append(annotationSetBlob(annItemOff))
	annDirOff := b.append(annotationsDirectoryBlob(annSetOff,
		[]annEntry{{4, annSetOff}},
		[]annEntry{{2, annSetOff}},
		nil))

	classData := cat(
		uleb(2), uleb(1), uleb(1), uleb(2), // counts
		uleb(3), uleb(0x8), // static field, ordinal 3
		uleb(1), uleb(0x9), // static field, ordinal 4
		uleb(1), uleb(0x2), // instance field, ordinal 5
		uleb(1), uleb(0x10001), uleb(0x100), // direct method, ordinal 1
		uleb(1), uleb(0x1), uleb(0x180), // virtual method, ordinal 2 (carry continues)
		uleb(1), uleb(0x1), uleb(0), // virtual method, ordinal 3
	)
	cdOff := b.append(classData)

	svOff := b.append(cat(
		uleb(1),
		[]byte{0x04, 0x07}, // int 7
	))

	b.addClass(classDefSpec{
		classIdx:        1,
		accessFlags:     0x1,
		superIdx:        2,
		interfacesOff:   ifaceOff,
		sourceIdx:       5,
		annotationsOff:  annDirOff,
		classDataOff:    cdOff,
		staticValuesOff: svOff,
	})
	b.addClass(classDefSpec{
		classIdx:    4,
		accessFlags: 0x1,
	})

	raw := b.build()
	dex, err := dexfile.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fooOff, err := dex.ClassDefOffset(0)
	if err != nil {
		t.Fatal(err)
	}
	barOff, err := dex.ClassDefOffset(1)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		dex:          dex,
		fooOff:       fooOff,
		barOff:       barOff,
		classDataOff: cdOff,
		classDataLen: len(classData),
		annSetOff:    annSetOff,
	}
}

func (f *fixture) foo(t *testing.T) *ClassDef {
	t.Helper()
	c, err := NewClassDef(f.dex, f.fooOff)
	if err != nil {
		t.Fatalf("NewClassDef: %v", err)
	}
	return c
}

func (f *fixture) bar(t *testing.T) *ClassDef {
	t.Helper()
	c, err := NewClassDef(f.dex, f.barOff)
	if err != nil {
		t.Fatalf("NewClassDef: %v", err)
	}
	return c
}
