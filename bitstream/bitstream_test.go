package bitstream

import "testing"

func TestBitsRoundtrip(t *testing.T) {
	// 0xD3 0x4A -> 1101 0011 0100 1010
	buf := []byte{0xD3, 0x4A}

	r := New(buf)

	got, err := r.Bits(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xD {
		t.Errorf("got %x, want %x", got, 0xD)
	}

	got, err = r.Bits(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x3 {
		t.Errorf("got %x, want %x", got, 0x3)
	}

	got, err = r.Bits(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x4A {
		t.Errorf("got %x, want %x", got, 0x4A)
	}
}

func TestBitsAcrossByteBoundary(t *testing.T) {
	// 1010 1100 1111 0000 -> reading 12 bits from bit 2 should give
	// 10 1100 1111 00 -> 0b101100111100  == 0xB3C
	buf := []byte{0xAC, 0xF0}
	r := New(buf)
	if err := r.Skip(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Bits(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint64(0xB3C)
	if got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestSignedBits(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		n    uint
		want int64
	}{
		{"positive", []byte{0x3F, 0x00}, 6, 15},
		{"negative", []byte{0xFC, 0x00}, 6, -1},
		{"minimum", []byte{0x80}, 8, -128},
		{"maximum", []byte{0x7F}, 8, 127},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := New(c.buf)
			got, err := r.SignedBits(c.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestSignMagnitudeBits(t *testing.T) {
	// 5 bits: leading bit is sign.  10011 -> sign set, magnitude 0011 = 3 -> -3.
	r := New([]byte{0x98}) // 1001 1000
	got, err := r.SignMagnitudeBits(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -3 {
		t.Errorf("got %d, want -3", got)
	}

	// 01011 -> sign clear, magnitude 1011 = 11.
	r2 := New([]byte{0x58}) // 0101 1000
	got2, err := r2.SignMagnitudeBits(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2 != 11 {
		t.Errorf("got %d, want 11", got2)
	}
}

func TestFloatScaling(t *testing.T) {
	r := New([]byte{0x0A}) // 10 unsigned = 0x0A
	got, err := r.Float(8, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5.0 {
		t.Errorf("got %v, want 5.0", got)
	}
}

func TestUnderflowDoesNotAdvanceCursor(t *testing.T) {
	r := New([]byte{0xFF})
	if _, err := r.Bits(16); err == nil {
		t.Fatal("expected an error reading past the end of the buffer")
	}
	if r.BitsRead() != 0 {
		t.Errorf("cursor moved after a failed read: %d", r.BitsRead())
	}
}

func TestSkipAndBitsRemaining(t *testing.T) {
	r := New([]byte{0x00, 0x00, 0x00})
	if r.BitsRemaining() != 24 {
		t.Fatalf("got %d bits remaining, want 24", r.BitsRemaining())
	}
	if err := r.Skip(20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BitsRemaining() != 4 {
		t.Errorf("got %d bits remaining, want 4", r.BitsRemaining())
	}
}

func TestInvalidFieldWidth(t *testing.T) {
	r := New([]byte{0x00})
	if _, err := r.Bits(0); err == nil {
		t.Error("expected an error for a zero-width field")
	}
	if _, err := r.SignMagnitudeBits(1); err == nil {
		t.Error("expected an error for a 1-bit sign-magnitude field")
	}
}
