// Package dexfile parses the DEX container header and ID tables and hands
// out bounds-checked readers over the shared buffer.
package dexfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dexview/internal/dexfmt"
)

var (
	ErrBadMagic     = errors.New("dexfile: bad magic")
	ErrBadEndianTag = errors.New("dexfile: unsupported endian tag")
)

// Header layout constants.
//
//	+0x00: magic      [8]byte  "dex\n0NN\0"
//	+0x08: checksum   uint32   (adler32 over bytes 12..end)
//	+0x0c: signature  [20]byte (sha-1 over bytes 32..end)
//	+0x20: file_size  uint32
//	+0x24: header_size uint32  (0x70)
//	+0x28: endian_tag uint32   (0x12345678)
//	+0x2c: link_size/link_off
//	+0x34: map_off
//	+0x38: string_ids size/off
//	+0x40: type_ids size/off
//	+0x48: proto_ids size/off
//	+0x50: field_ids size/off
//	+0x58: method_ids size/off
//	+0x60: class_defs size/off
//	+0x68: data size/off
const (
	HeaderSize = 0x70

	endianConstant        = 0x12345678
	reverseEndianConstant = 0x78563412

	stringIDSize = 4
	typeIDSize   = 4
	protoIDSize  = 12
	fieldIDSize  = 8
	methodIDSize = 8
	ClassDefSize = 32
)

var magicPrefix = [4]byte{'d', 'e', 'x', '\n'}

// Header holds the parsed fields of a DEX file header.
type Header struct {
	Version      string `json:"version"` // "035", "038", ...
	Checksum     uint32 `json:"checksum"`
	FileSize     uint32 `json:"file_size"`
	StringCount  uint32 `json:"string_count"`
	StringIDsOff uint32 `json:"string_ids_off"`
	TypeCount    uint32 `json:"type_count"`
	TypeIDsOff   uint32 `json:"type_ids_off"`
	ProtoCount   uint32 `json:"proto_count"`
	ProtoIDsOff  uint32 `json:"proto_ids_off"`
	FieldCount   uint32 `json:"field_count"`
	FieldIDsOff  uint32 `json:"field_ids_off"`
	MethodCount  uint32 `json:"method_count"`
	MethodIDsOff uint32 `json:"method_ids_off"`
	ClassCount   uint32 `json:"class_count"`
	ClassDefsOff uint32 `json:"class_defs_off"`
	DataSize     uint32 `json:"data_size"`
	DataOff      uint32 `json:"data_off"`
}

// DexFile is an immutable view over one DEX buffer. The buffer is shared by
// reference with every reader and view constructed from it; nothing copies
// or mutates it, so a DexFile may be used from multiple goroutines.
type DexFile struct {
	data   []byte
	header Header
}

// Parse validates the header and returns a DexFile over data.
// The buffer is retained, not copied.
func Parse(data []byte) (*DexFile, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("dexfile: header: %w", dexfmt.ErrTruncated)
	}
	var magic [8]byte
	copy(magic[:], data[:8])
	if [4]byte(magic[:4]) != magicPrefix || magic[7] != 0 {
		return nil, fmt.Errorf("%w: % x", ErrBadMagic, magic)
	}
	endian := binary.LittleEndian.Uint32(data[0x28:])
	if endian != endianConstant {
		if endian == reverseEndianConstant {
			return nil, fmt.Errorf("%w: big-endian files are not supported", ErrBadEndianTag)
		}
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadEndianTag, endian)
	}

	d := &DexFile{data: data}
	h := &d.header
	h.Version = string(magic[4:7])
	h.Checksum = binary.LittleEndian.Uint32(data[0x08:])
	h.FileSize = binary.LittleEndian.Uint32(data[0x20:])
	h.StringCount = binary.LittleEndian.Uint32(data[0x38:])
	h.StringIDsOff = binary.LittleEndian.Uint32(data[0x3c:])
	h.TypeCount = binary.LittleEndian.Uint32(data[0x40:])
	h.TypeIDsOff = binary.LittleEndian.Uint32(data[0x44:])
	h.ProtoCount = binary.LittleEndian.Uint32(data[0x48:])
	h.ProtoIDsOff = binary.LittleEndian.Uint32(data[0x4c:])
	h.FieldCount = binary.LittleEndian.Uint32(data[0x50:])
	h.FieldIDsOff = binary.LittleEndian.Uint32(data[0x54:])
	h.MethodCount = binary.LittleEndian.Uint32(data[0x58:])
	h.MethodIDsOff = binary.LittleEndian.Uint32(data[0x5c:])
	h.ClassCount = binary.LittleEndian.Uint32(data[0x60:])
	h.ClassDefsOff = binary.LittleEndian.Uint32(data[0x64:])
	h.DataSize = binary.LittleEndian.Uint32(data[0x68:])
	h.DataOff = binary.LittleEndian.Uint32(data[0x6c:])
	return d, nil
}

// Header returns the parsed header.
func (d *DexFile) Header() Header { return d.header }

// Len returns the buffer length.
func (d *DexFile) Len() int { return len(d.data) }

// ReaderAt returns a fresh cursor positioned at offset. Each call
// constructs independent state; concurrent readers do not interfere.
func (d *DexFile) ReaderAt(offset uint32) *dexfmt.Stream {
	return dexfmt.NewStreamAt(d.data, int(offset))
}

// ReadUint32At reads a fixed-width uint32 at an absolute offset.
func (d *DexFile) ReadUint32At(offset uint32) (uint32, error) {
	if int(offset)+4 > len(d.data) {
		return 0, fmt.Errorf("dexfile: u32 at 0x%x: %w", offset, dexfmt.ErrTruncated)
	}
	return binary.LittleEndian.Uint32(d.data[offset:]), nil
}

// ReadUint16At reads a fixed-width uint16 at an absolute offset.
func (d *DexFile) ReadUint16At(offset uint32) (uint16, error) {
	if int(offset)+2 > len(d.data) {
		return 0, fmt.Errorf("dexfile: u16 at 0x%x: %w", offset, dexfmt.ErrTruncated)
	}
	return binary.LittleEndian.Uint16(d.data[offset:]), nil
}

// StringAt resolves a string table index to its decoded value.
func (d *DexFile) StringAt(index uint32) (string, error) {
	if index >= d.header.StringCount {
		return "", fmt.Errorf("dexfile: string index %d out of range (count %d): %w",
			index, d.header.StringCount, dexfmt.ErrTruncated)
	}
	dataOff, err := d.ReadUint32At(d.header.StringIDsOff + index*stringIDSize)
	if err != nil {
		return "", err
	}
	s := d.ReaderAt(dataOff)
	// utf16 length prefix; the byte length follows from the encoding.
	utf16Len, err := s.ReadUleb128()
	if err != nil {
		return "", fmt.Errorf("dexfile: string %d: %w", index, err)
	}
	return decodeMUTF8(s, int(utf16Len))
}

// OptionalStringAt resolves a string index where 0 means absent.
// Returns "" with no error for the absent sentinel.
func (d *DexFile) OptionalStringAt(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}
	return d.StringAt(index)
}

// TypeNameAt resolves a type table index to its descriptor string.
func (d *DexFile) TypeNameAt(index uint32) (string, error) {
	if index >= d.header.TypeCount {
		return "", fmt.Errorf("dexfile: type index %d out of range (count %d): %w",
			index, d.header.TypeCount, dexfmt.ErrTruncated)
	}
	descriptorIdx, err := d.ReadUint32At(d.header.TypeIDsOff + index*typeIDSize)
	if err != nil {
		return "", err
	}
	return d.StringAt(descriptorIdx)
}

// OptionalTypeNameAt resolves a type index where 0 means absent.
func (d *DexFile) OptionalTypeNameAt(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}
	return d.TypeNameAt(index)
}

// FieldID identifies one entry in the global field table.
type FieldID struct {
	ClassIdx uint16
	TypeIdx  uint16
	NameIdx  uint32
}

// FieldIDAt reads the field_id_item at the given table index.
func (d *DexFile) FieldIDAt(index uint32) (FieldID, error) {
	if index >= d.header.FieldCount {
		return FieldID{}, fmt.Errorf("dexfile: field index %d out of range (count %d): %w",
			index, d.header.FieldCount, dexfmt.ErrTruncated)
	}
	off := d.header.FieldIDsOff + index*fieldIDSize
	var id FieldID
	var err error
	if id.ClassIdx, err = d.ReadUint16At(off); err != nil {
		return FieldID{}, err
	}
	if id.TypeIdx, err = d.ReadUint16At(off + 2); err != nil {
		return FieldID{}, err
	}
	if id.NameIdx, err = d.ReadUint32At(off + 4); err != nil {
		return FieldID{}, err
	}
	return id, nil
}

// FieldName resolves a field table index to its declared name.
func (d *DexFile) FieldName(index uint32) (string, error) {
	id, err := d.FieldIDAt(index)
	if err != nil {
		return "", err
	}
	return d.StringAt(id.NameIdx)
}

// MethodID identifies one entry in the global method table.
type MethodID struct {
	ClassIdx uint16
	ProtoIdx uint16
	NameIdx  uint32
}

// MethodIDAt reads the method_id_item at the given table index.
func (d *DexFile) MethodIDAt(index uint32) (MethodID, error) {
	if index >= d.header.MethodCount {
		return MethodID{}, fmt.Errorf("dexfile: method index %d out of range (count %d): %w",
			index, d.header.MethodCount, dexfmt.ErrTruncated)
	}
	off := d.header.MethodIDsOff + index*methodIDSize
	var id MethodID
	var err error
	if id.ClassIdx, err = d.ReadUint16At(off); err != nil {
		return MethodID{}, err
	}
	if id.ProtoIdx, err = d.ReadUint16At(off + 2); err != nil {
		return MethodID{}, err
	}
	if id.NameIdx, err = d.ReadUint32At(off + 4); err != nil {
		return MethodID{}, err
	}
	return id, nil
}

// MethodName resolves a method table index to its declared name.
func (d *DexFile) MethodName(index uint32) (string, error) {
	id, err := d.MethodIDAt(index)
	if err != nil {
		return "", err
	}
	return d.StringAt(id.NameIdx)
}

// ProtoID identifies one entry in the prototype table.
type ProtoID struct {
	ShortyIdx     uint32
	ReturnTypeIdx uint32
	ParametersOff uint32
}

// ProtoIDAt reads the proto_id_item at the given table index.
func (d *DexFile) ProtoIDAt(index uint32) (ProtoID, error) {
	if index >= d.header.ProtoCount {
		return ProtoID{}, fmt.Errorf("dexfile: proto index %d out of range (count %d): %w",
			index, d.header.ProtoCount, dexfmt.ErrTruncated)
	}
	off := d.header.ProtoIDsOff + index*protoIDSize
	var id ProtoID
	var err error
	if id.ShortyIdx, err = d.ReadUint32At(off); err != nil {
		return ProtoID{}, err
	}
	if id.ReturnTypeIdx, err = d.ReadUint32At(off + 4); err != nil {
		return ProtoID{}, err
	}
	if id.ParametersOff, err = d.ReadUint32At(off + 8); err != nil {
		return ProtoID{}, err
	}
	return id, nil
}

// Shorty resolves a method's short-form descriptor, e.g. "VL".
func (d *DexFile) Shorty(protoIdx uint32) (string, error) {
	id, err := d.ProtoIDAt(protoIdx)
	if err != nil {
		return "", err
	}
	return d.StringAt(id.ShortyIdx)
}

// ClassDefOffset returns the absolute offset of class_def_item i.
func (d *DexFile) ClassDefOffset(i uint32) (uint32, error) {
	if i >= d.header.ClassCount {
		return 0, fmt.Errorf("dexfile: class def %d out of range (count %d): %w",
			i, d.header.ClassCount, dexfmt.ErrTruncated)
	}
	return d.header.ClassDefsOff + i*ClassDefSize, nil
}
