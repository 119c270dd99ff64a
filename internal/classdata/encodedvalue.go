package classdata

import (
	"fmt"
	"math"

	"dexview/internal/dexfmt"
)

// ValueKind identifies an encoded_value type.
type ValueKind uint8

const (
	KindByte         ValueKind = 0x00
	KindShort        ValueKind = 0x02
	KindChar         ValueKind = 0x03
	KindInt          ValueKind = 0x04
	KindLong         ValueKind = 0x06
	KindFloat        ValueKind = 0x10
	KindDouble       ValueKind = 0x11
	KindMethodType   ValueKind = 0x15
	KindMethodHandle ValueKind = 0x16
	KindString       ValueKind = 0x17
	KindType         ValueKind = 0x18
	KindField        ValueKind = 0x19
	KindMethod       ValueKind = 0x1a
	KindEnum         ValueKind = 0x1b
	KindArray        ValueKind = 0x1c
	KindAnnotation   ValueKind = 0x1d
	KindNull         ValueKind = 0x1e
	KindBoolean      ValueKind = 0x1f
)

func (k ValueKind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindMethodType:
		return "method_type"
	case KindMethodHandle:
		return "method_handle"
	case KindString:
		return "string"
	case KindType:
		return "type"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindAnnotation:
		return "annotation"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("kind_0x%02x", uint8(k))
	}
}

// EncodedValue is one decoded encoded_value. Which fields are meaningful
// depends on Kind: Int for numeric and index kinds, Bool for booleans,
// Float for float/double, Values for arrays, Annotation for nested
// annotations. Null carries nothing.
type EncodedValue struct {
	Kind       ValueKind
	Int        int64
	Bool       bool
	Float      float64
	Values     []EncodedValue
	Annotation *EncodedAnnotation
}

// EncodedAnnotation is the payload of an annotation value or annotation_item.
type EncodedAnnotation struct {
	TypeIndex uint32
	Elements  []AnnotationElement
}

// AnnotationElement is one named element of an encoded annotation.
type AnnotationElement struct {
	NameIndex uint32
	Value     EncodedValue
}

// ReadEncodedValue decodes one encoded_value from the stream.
func ReadEncodedValue(s *dexfmt.Stream) (*EncodedValue, error) {
	return readValue(s, true)
}

// SkipEncodedValue advances past one encoded_value. It consumes exactly the
// bytes ReadEncodedValue would and fails on exactly the same inputs.
func SkipEncodedValue(s *dexfmt.Stream) error {
	_, err := readValue(s, false)
	return err
}

// maxValueArg returns the largest legal value_arg for a kind, or -1 for
// kinds where value_arg is not a size.
func maxValueArg(kind ValueKind) int {
	switch kind {
	case KindByte:
		return 0
	case KindShort, KindChar:
		return 1
	case KindInt, KindFloat, KindMethodType, KindMethodHandle,
		KindString, KindType, KindField, KindMethod, KindEnum:
		return 3
	case KindLong, KindDouble:
		return 7
	default:
		return -1
	}
}

// readValue is the single traversal routine behind both read and skip, so
// the two paths can never diverge in bytes consumed.
func readValue(s *dexfmt.Stream, materialize bool) (*EncodedValue, error) {
	pos := s.Position()
	hdr, err := s.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("classdata: value header at 0x%x: %w", pos, err)
	}
	kind := ValueKind(hdr & 0x1f)
	arg := int(hdr >> 5)

	v := &EncodedValue{Kind: kind}

	switch kind {
	case KindNull:
		if arg != 0 {
			return nil, fmt.Errorf("%w: null with value_arg %d at 0x%x", ErrMalformedValue, arg, pos)
		}
	case KindBoolean:
		if arg > 1 {
			return nil, fmt.Errorf("%w: boolean with value_arg %d at 0x%x", ErrMalformedValue, arg, pos)
		}
		v.Bool = arg != 0
	case KindArray:
		n, err := s.ReadUleb128()
		if err != nil {
			return nil, fmt.Errorf("classdata: array size at 0x%x: %w", pos, err)
		}
		if materialize {
			v.Values = make([]EncodedValue, 0, n)
		}
		for i := uint32(0); i < n; i++ {
			elem, err := readValue(s, materialize)
			if err != nil {
				return nil, err
			}
			if materialize {
				v.Values = append(v.Values, *elem)
			}
		}
	case KindAnnotation:
		ann, err := readAnnotationPayload(s, materialize)
		if err != nil {
			return nil, err
		}
		v.Annotation = ann
	default:
		max := maxValueArg(kind)
		if max < 0 {
			return nil, fmt.Errorf("%w: unknown value type 0x%02x at 0x%x", ErrMalformedValue, uint8(kind), pos)
		}
		if arg > max {
			return nil, fmt.Errorf("%w: %s with value_arg %d at 0x%x", ErrMalformedValue, kind, arg, pos)
		}
		size := arg + 1
		raw, err := s.ReadBytes(size)
		if err != nil {
			return nil, fmt.Errorf("classdata: %s payload at 0x%x: %w", kind, pos, err)
		}
		if !materialize {
			break
		}
		var u uint64
		for i, b := range raw {
			u |= uint64(b) << (8 * i)
		}
		switch kind {
		case KindByte, KindShort, KindInt, KindLong:
			// Sign-extend from the encoded width.
			shift := 64 - 8*uint(size)
			v.Int = int64(u<<shift) >> shift
		case KindChar, KindMethodType, KindMethodHandle, KindString,
			KindType, KindField, KindMethod, KindEnum:
			v.Int = int64(u)
		case KindFloat:
			// Right-zero-extended: encoded bytes are the high-order bytes.
			v.Float = float64(math.Float32frombits(uint32(u) << (8 * (4 - size))))
		case KindDouble:
			v.Float = math.Float64frombits(u << (8 * (8 - size)))
		}
	}

	if !materialize {
		return nil, nil
	}
	return v, nil
}

// readAnnotationPayload decodes an encoded_annotation: type index, element
// count, then (name index, value) pairs.
func readAnnotationPayload(s *dexfmt.Stream, materialize bool) (*EncodedAnnotation, error) {
	pos := s.Position()
	typeIdx, err := s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: annotation type at 0x%x: %w", pos, err)
	}
	n, err := s.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("classdata: annotation size at 0x%x: %w", pos, err)
	}
	var ann *EncodedAnnotation
	if materialize {
		ann = &EncodedAnnotation{TypeIndex: typeIdx, Elements: make([]AnnotationElement, 0, n)}
	}
	for i := uint32(0); i < n; i++ {
		nameIdx, err := s.ReadUleb128()
		if err != nil {
			return nil, fmt.Errorf("classdata: annotation element %d name at 0x%x: %w", i, pos, err)
		}
		val, err := readValue(s, materialize)
		if err != nil {
			return nil, err
		}
		if materialize {
			ann.Elements = append(ann.Elements, AnnotationElement{NameIndex: nameIdx, Value: *val})
		}
	}
	if !materialize {
		return nil, nil
	}
	return ann, nil
}
