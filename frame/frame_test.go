package frame

import "testing"

// validMessageFrame is a real RTCM 3 message frame (type 1097, length 170),
// taken from a captured stream.
var validMessageFrame = []byte{
	0xd3, 0x00, 0xaa, 0x44, 0x90, 0x00, 0x33, 0xf6, 0xea, 0xe2, 0x00, 0x00, 0x0c, 0x50, 0x00, 0x10,
	0x08, 0x00, 0x00, 0x00, 0x20, 0x01, 0x00, 0x00, 0x3f, 0xaa, 0xaa, 0xb2, 0x42, 0x8a, 0xea, 0x68,
	0x00, 0x00, 0x07, 0x65, 0xce, 0x68, 0x1b, 0xb4, 0xc8, 0x83, 0x7c, 0xe6, 0x11, 0x30, 0x10, 0x3f,
	0x05, 0xff, 0x4f, 0xfc, 0xe0, 0x4f, 0x61, 0x68, 0x59, 0xb6, 0x86, 0xb5, 0x1b, 0xa1, 0x31, 0xb9,
	0xd9, 0x71, 0x55, 0x57, 0x07, 0xa0, 0x00, 0xd3, 0x2e, 0x0c, 0x99, 0x01, 0x98, 0xc4, 0xfa, 0x16,
	0x0e, 0xfa, 0x6e, 0xac, 0x07, 0x19, 0x7a, 0x07, 0x3a, 0xa4, 0xfc, 0x53, 0xc4, 0xfb, 0xff, 0x97,
	0x00, 0x4c, 0x6f, 0xf8, 0x65, 0xda, 0x4e, 0x61, 0xe4, 0x75, 0x2c, 0x4b, 0x01, 0xe5, 0x21, 0x0d,
	0x4f, 0xc0, 0x0b, 0x02, 0xb0, 0xb0, 0x2f, 0x0c, 0x02, 0x70, 0x94, 0x23, 0x0b, 0xc3, 0xe9, 0xe0,
	0x97, 0xd1, 0x70, 0x63, 0x00, 0x45, 0x8d, 0xe9, 0x71, 0xd7, 0xe5, 0xeb, 0x5f, 0xf8, 0x78, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x4d, 0xf5, 0x5a,
}

func TestNextReturnsCompleteFrame(t *testing.T) {
	var e Extractor
	e.Push(validMessageFrame)

	frame, ok := e.Next()
	if !ok {
		t.Fatal("expected a complete frame")
	}
	if len(frame) != len(validMessageFrame) {
		t.Fatalf("frame length = %d, want %d", len(frame), len(validMessageFrame))
	}
	msgType, err := MessageType(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != 1097 {
		t.Errorf("message type = %d, want 1097", msgType)
	}

	if _, ok := e.Next(); ok {
		t.Error("expected no second frame")
	}
}

func TestNextWaitsForMoreBytes(t *testing.T) {
	var e Extractor
	e.Push(validMessageFrame[:10])
	if _, ok := e.Next(); ok {
		t.Fatal("expected Next to report no frame ready yet")
	}
	e.Push(validMessageFrame[10:])
	frame, ok := e.Next()
	if !ok || len(frame) != len(validMessageFrame) {
		t.Fatalf("expected the completed frame once the rest arrived, got ok=%v len=%d", ok, len(frame))
	}
}

func TestNextSkipsLeadingGarbage(t *testing.T) {
	var e Extractor
	garbage := []byte("$GPGGA,noise before the frame starts\r\n")
	e.Push(garbage)
	e.Push(validMessageFrame)

	frame, ok := e.Next()
	if !ok {
		t.Fatal("expected the frame to be found after the garbage")
	}
	if len(frame) != len(validMessageFrame) {
		t.Fatalf("frame length = %d, want %d", len(frame), len(validMessageFrame))
	}
}

func TestNextResyncsPastFalsePreamble(t *testing.T) {
	var e Extractor
	// A stray 0xd3 byte that isn't really a frame start (the reserved bits
	// that follow it are non-zero), sitting right before a real frame.
	e.Push([]byte{preamble, 0xff, 0xff})
	e.Push(validMessageFrame)

	frame, ok := e.Next()
	if !ok || len(frame) != len(validMessageFrame) {
		t.Fatalf("expected the real frame after the false preamble, got ok=%v len=%d", ok, len(frame))
	}
}

func TestNextResyncsPastCorruptedFrame(t *testing.T) {
	var e Extractor
	corrupted := append([]byte(nil), validMessageFrame...)
	corrupted[len(corrupted)-1] ^= 0xff // wreck the CRC

	e.Push(corrupted)
	e.Push(validMessageFrame)

	frame, ok := e.Next()
	if !ok {
		t.Fatal("expected to find the valid frame after skipping the corrupted one")
	}
	if len(frame) != len(validMessageFrame) || frame[len(frame)-1] != validMessageFrame[len(validMessageFrame)-1] {
		t.Error("expected the second, valid frame to be returned")
	}
}

func TestPayloadStripsLeaderAndCRC(t *testing.T) {
	payload := Payload(validMessageFrame)
	if len(payload) != len(validMessageFrame)-leaderLengthBytes-crcLengthBytes {
		t.Errorf("payload length = %d, want %d", len(payload), len(validMessageFrame)-leaderLengthBytes-crcLengthBytes)
	}
	msgType, err := MessageType(validMessageFrame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != 1097 {
		t.Errorf("message type = %d, want 1097", msgType)
	}
}
