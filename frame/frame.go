// Package frame pulls complete, CRC-valid RTCM 3 message frames out of a
// byte stream that may also carry other protocols (NMEA, UBX) interleaved
// with them, or may simply lose or corrupt bytes in transit. It works in
// a push style: a caller with bytes arriving from a socket or serial port
// feeds them in as they arrive and asks for whatever frames are ready,
// rather than blocking a goroutine on a Read call.
package frame

import (
	"bytes"

	"github.com/goblimey/go-crc24q/crc24q"
	"github.com/goblimey/rtcm2rinex/bitstream"
)

// preamble is the fixed first byte of every RTCM 3 message frame.
const preamble = 0xd3

// leaderLengthBytes is the preamble byte plus the two length bytes.
const leaderLengthBytes = 3

// crcLengthBytes is the trailing CRC-24Q value.
const crcLengthBytes = 3

// Extractor accumulates bytes pushed by the caller and hands back complete
// message frames as they become available. It is not safe for concurrent
// use.
type Extractor struct {
	pending []byte
}

// Push adds bytes arriving from the stream to the extractor's buffer.
func (e *Extractor) Push(b []byte) {
	e.pending = append(e.pending, b...)
}

// PushByte adds a single byte arriving from the stream.
func (e *Extractor) PushByte(b byte) {
	e.pending = append(e.pending, b)
}

// Next returns the next complete, CRC-valid frame buffered so far,
// including the leader and the trailing CRC. If no complete frame is
// ready yet, ok is false and the caller should push more bytes and try
// again. Next resyncs past stray bytes, false preamble matches and
// CRC failures on its own; the caller doesn't need to skip anything
// itself.
func (e *Extractor) Next() (msg []byte, ok bool) {
	for {
		idx := bytes.IndexByte(e.pending, preamble)
		if idx < 0 {
			// Nothing of interest in what we have; drop it so the buffer
			// doesn't grow without bound while waiting for a preamble.
			e.pending = e.pending[:0]
			return nil, false
		}
		if idx > 0 {
			e.pending = e.pending[idx:]
		}

		if len(e.pending) < leaderLengthBytes {
			return nil, false
		}

		// The six bits after the preamble must be zero; if they aren't,
		// this 0xd3 is just a data byte, not a frame start.
		reserved := (e.pending[1] >> 2) & 0x3f
		if reserved != 0 {
			e.pending = e.pending[1:]
			continue
		}

		length := uint(e.pending[1]&0x3)<<8 | uint(e.pending[2])
		frameLen := leaderLengthBytes + length + crcLengthBytes
		if uint(len(e.pending)) < frameLen {
			return nil, false
		}

		candidate := e.pending[:frameLen]
		if !checkCRC(candidate) {
			// Either a corrupted frame or a 0xd3 that isn't really a
			// preamble; resync past it and keep looking.
			e.pending = e.pending[1:]
			continue
		}

		e.pending = e.pending[frameLen:]
		out := make([]byte, frameLen)
		copy(out, candidate)
		return out, true
	}
}

// checkCRC reports whether frame's trailing three bytes match the CRC-24Q
// of everything before them.
func checkCRC(frame []byte) bool {
	if len(frame) < crcLengthBytes {
		return false
	}
	body := frame[:len(frame)-crcLengthBytes]
	want := frame[len(frame)-crcLengthBytes:]
	got := crc24q.Hash(body)
	return crc24q.HiByte(got) == want[0] &&
		crc24q.MiByte(got) == want[1] &&
		crc24q.LoByte(got) == want[2]
}

// MessageType reads the 12-bit message type that immediately follows a
// frame's three-byte leader.
func MessageType(frame []byte) (int, error) {
	r := bitstream.New(frame)
	if err := r.Skip(24); err != nil {
		return 0, err
	}
	v, err := r.Bits(12)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Payload returns the part of a frame between the leader and the CRC: the
// message type plus whatever fields follow it, exactly as the message
// decoders expect to receive it.
func Payload(frame []byte) []byte {
	if len(frame) < leaderLengthBytes+crcLengthBytes {
		return nil
	}
	return frame[leaderLengthBytes : len(frame)-crcLengthBytes]
}
