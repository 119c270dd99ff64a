package dexfmt

import (
	"testing"
)

func TestReadUleb128_SingleByte(t *testing.T) {
	// Single-byte encoding: bit 7 clear means terminal.
	tests := []struct {
		in   byte
		want uint32
	}{
		{0, 0},
		{1, 1},
		{127, 127},
	}
	for _, tt := range tests {
		s := NewStream([]byte{tt.in})
		got, err := s.ReadUleb128()
		if err != nil {
			t.Errorf("ReadUleb128(%d): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadUleb128(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadUleb128_MultiByte(t *testing.T) {
	// Continuation bytes (bit 7 set) carry 7 bits each, little-endian.
	tests := []struct {
		in   []byte
		want uint32
	}{
		{[]byte{0x80, 0x01}, 128},                          // 0 | (1 << 7)
		{[]byte{0xb4, 0x07}, 948},                          // 0x34 | (7 << 7)
		{[]byte{0xff, 0x7f}, 16383},                        // 127 | (127 << 7)
		{[]byte{0x80, 0x80, 0x01}, 16384},                  // 1 << 14
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff}, // max uint32
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadUleb128()
		if err != nil {
			t.Errorf("ReadUleb128(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadUleb128(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadUleb128_Truncated(t *testing.T) {
	s := NewStream([]byte{})
	_, err := s.ReadUleb128()
	if err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}

	// Continuation byte with no terminator.
	s = NewStream([]byte{0x80})
	_, err = s.ReadUleb128()
	if err != ErrTruncated {
		t.Errorf("expected ErrTruncated for unterminated, got %v", err)
	}
}

func TestReadUleb128_Overflow(t *testing.T) {
	// Fifth byte may only contribute 4 bits.
	s := NewStream([]byte{0xff, 0xff, 0xff, 0xff, 0x1f})
	_, err := s.ReadUleb128()
	if err != ErrOverflow {
		t.Errorf("expected ErrOverflow, got %v", err)
	}

	// Six-byte encoding never terminates within the limit.
	s = NewStream([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err = s.ReadUleb128()
	if err != ErrOverflow {
		t.Errorf("expected ErrOverflow for long encoding, got %v", err)
	}
}

func TestReadUleb128p1(t *testing.T) {
	tests := []struct {
		in   []byte
		want int32
	}{
		{[]byte{0x00}, -1}, // NO_INDEX
		{[]byte{0x01}, 0},
		{[]byte{0x80, 0x01}, 127},
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadUleb128p1()
		if err != nil {
			t.Errorf("ReadUleb128p1(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadUleb128p1(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadSleb128(t *testing.T) {
	tests := []struct {
		in   []byte
		want int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0xff, 0x00}, 127},
	}
	for _, tt := range tests {
		s := NewStream(tt.in)
		got, err := s.ReadSleb128()
		if err != nil {
			t.Errorf("ReadSleb128(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadSleb128(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSkipUleb128_ConsumesSameBytes(t *testing.T) {
	tests := [][]byte{
		{0x00, 0xaa},
		{0x80, 0x01, 0xaa},
		{0xff, 0xff, 0x03, 0xaa},
	}
	for _, in := range tests {
		read := NewStream(in)
		if _, err := read.ReadUleb128(); err != nil {
			t.Fatalf("ReadUleb128(%v): %v", in, err)
		}
		skip := NewStream(in)
		if err := skip.SkipUleb128(); err != nil {
			t.Fatalf("SkipUleb128(%v): %v", in, err)
		}
		if read.Position() != skip.Position() {
			t.Errorf("skip/read position mismatch for %v: %d vs %d", in, skip.Position(), read.Position())
		}
	}
}

func TestSkipUleb128_FailsLikeRead(t *testing.T) {
	s := NewStream([]byte{0x80})
	if err := s.SkipUleb128(); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestReadFixedWidth(t *testing.T) {
	s := NewStream([]byte{0x78, 0x56, 0x34, 0x12, 0xcd, 0xab})
	v32, err := s.ReadUint32()
	if err != nil {
		t.Fatal(err)
	}
	if v32 != 0x12345678 {
		t.Errorf("ReadUint32 = 0x%x, want 0x12345678", v32)
	}
	v16, err := s.ReadUint16()
	if err != nil {
		t.Fatal(err)
	}
	if v16 != 0xabcd {
		t.Errorf("ReadUint16 = 0x%x, want 0xabcd", v16)
	}
	if _, err := s.ReadUint16(); err != ErrTruncated {
		t.Errorf("expected ErrTruncated at end, got %v", err)
	}
}

func TestStreamPosition(t *testing.T) {
	s := NewStreamAt([]byte{0, 0, 0, 5, 1}, 3)
	if s.Position() != 3 {
		t.Errorf("position = %d, want 3", s.Position())
	}
	if s.Remaining() != 2 {
		t.Errorf("remaining = %d, want 2", s.Remaining())
	}
	v, err := s.ReadUleb128()
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("ReadUleb128 = %d, want 5", v)
	}
	if err := s.Skip(2); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
