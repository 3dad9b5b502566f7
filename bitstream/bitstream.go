// Package bitstream extracts unsigned, two's-complement signed and
// sign-magnitude fields from a non-byte-aligned buffer, the way an RTCM 3
// payload packs them.  It's a value type: a Reader just wraps a byte slice
// and a bit cursor, so one can be created cheaply per message and discarded.
package bitstream

import "fmt"

// maxFieldBits bounds the field widths this reader supports.  The MSM
// satellite mask (64 bits) is the widest field an RTCM 3 message carries.
const maxFieldBits = 64

// Reader reads bit fields from a byte slice, most significant bit first,
// tracking how many bits have been consumed so far.  It does not copy the
// underlying slice.
type Reader struct {
	buf    []byte
	bitPos uint // number of bits consumed so far, from the start of buf
}

// New creates a Reader over buf.  The buffer is not copied; the caller must
// not mutate it while the Reader is in use.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// BitsRead returns the number of bits consumed so far.
func (r *Reader) BitsRead() uint {
	return r.bitPos
}

// BitsRemaining returns the number of bits left in the buffer.
func (r *Reader) BitsRemaining() uint {
	total := uint(len(r.buf)) * 8
	if r.bitPos >= total {
		return 0
	}
	return total - r.bitPos
}

// errShortBuffer is returned whenever a field would run off the end of the
// buffer. The caller should abandon the message being decoded; no partial
// write has happened because extraction always reads before a caller
// commits any value.
func (r *Reader) errShortBuffer(n uint) error {
	return fmt.Errorf("bitstream: want %d bits, only %d remain", n, r.BitsRemaining())
}

// Bits reads n unsigned bits (1 <= n <= 64) and advances the cursor.  On
// underflow it returns an error and leaves the cursor unchanged.
func (r *Reader) Bits(n uint) (uint64, error) {
	if n == 0 || n > maxFieldBits {
		return 0, fmt.Errorf("bitstream: invalid field width %d", n)
	}
	if n > r.BitsRemaining() {
		return 0, r.errShortBuffer(n)
	}

	var value uint64
	pos := r.bitPos
	for remaining := n; remaining > 0; {
		byteIndex := pos / 8
		bitOffsetInByte := pos % 8
		bitsLeftInByte := 8 - bitOffsetInByte
		take := bitsLeftInByte
		if take > remaining {
			take = remaining
		}
		shift := bitsLeftInByte - take
		mask := byte((1 << take) - 1)
		chunk := (r.buf[byteIndex] >> shift) & mask
		value = (value << take) | uint64(chunk)
		pos += take
		remaining -= take
	}

	r.bitPos = pos
	return value, nil
}

// SignedBits reads n bits (2 <= n <= 64) as a two's-complement signed
// integer.
func (r *Reader) SignedBits(n uint) (int64, error) {
	raw, err := r.Bits(n)
	if err != nil {
		return 0, err
	}
	return signExtend(raw, n), nil
}

// signExtend treats the bottom n bits of raw as two's complement and sign
// extends them into an int64.
func signExtend(raw uint64, n uint) int64 {
	if n == 64 {
		return int64(raw)
	}
	signBit := uint64(1) << (n - 1)
	if raw&signBit != 0 {
		return int64(raw) - int64(uint64(1)<<n)
	}
	return int64(raw)
}

// SignMagnitudeBits reads an n-bit sign-magnitude field: the leading bit is
// the sign (1 means negative) and the remaining n-1 bits are the unsigned
// magnitude.  GLONASS ephemeris fields use this encoding; ordinary
// two's-complement would misinterpret the sign.
func (r *Reader) SignMagnitudeBits(n uint) (int64, error) {
	if n < 2 {
		return 0, fmt.Errorf("bitstream: sign-magnitude field needs at least 2 bits, got %d", n)
	}
	raw, err := r.Bits(n)
	if err != nil {
		return 0, err
	}
	magnitudeBits := n - 1
	magnitudeMask := uint64(1)<<magnitudeBits - 1
	magnitude := int64(raw & magnitudeMask)
	signBit := uint64(1) << magnitudeBits
	if raw&signBit != 0 {
		return -magnitude, nil
	}
	return magnitude, nil
}

// Float reads n unsigned bits and scales them.
func (r *Reader) Float(n uint, scale float64) (float64, error) {
	raw, err := r.Bits(n)
	if err != nil {
		return 0, err
	}
	return float64(raw) * scale, nil
}

// SignedFloat reads n bits as two's-complement signed and scales them.
func (r *Reader) SignedFloat(n uint, scale float64) (float64, error) {
	raw, err := r.SignedBits(n)
	if err != nil {
		return 0, err
	}
	return float64(raw) * scale, nil
}

// SignMagnitudeFloat reads an n-bit sign-magnitude field and scales it.
func (r *Reader) SignMagnitudeFloat(n uint, scale float64) (float64, error) {
	raw, err := r.SignMagnitudeBits(n)
	if err != nil {
		return 0, err
	}
	return float64(raw) * scale, nil
}

// Skip advances the cursor by n bits without returning a value, for padding
// and reserved fields.
func (r *Reader) Skip(n uint) error {
	if n > r.BitsRemaining() {
		return r.errShortBuffer(n)
	}
	r.bitPos += n
	return nil
}
