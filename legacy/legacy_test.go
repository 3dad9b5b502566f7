package legacy

import (
	"testing"

	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

type bitWriter struct {
	buf    []byte
	bitPos uint
}

func (w *bitWriter) writeBits(value uint64, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := (value >> uint(i)) & 1
		byteIndex := w.bitPos / 8
		for uint(len(w.buf)) <= byteIndex {
			w.buf = append(w.buf, 0)
		}
		if bit != 0 {
			w.buf[byteIndex] |= 1 << (7 - w.bitPos%8)
		}
		w.bitPos++
	}
}

func (w *bitWriter) writeSigned(value int64, n uint) {
	mask := uint64(1)<<n - 1
	w.writeBits(uint64(value)&mask, n)
}

func writeGPS1001Sat(w *bitWriter, sv uint64) {
	w.writeBits(sv, 6)
	w.writeBits(0, 1)     // code flag: C/A
	w.writeBits(1000, 24) // L1 range
	w.writeSigned(100, 20)
	w.writeBits(5, 7) // lock
}

func TestGPSDecode1001OneSatellite(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(1001, 12)
	w.writeBits(0, 12)         // station ID
	w.writeBits(123456000, 30) // tow ms
	w.writeBits(0, 1)          // sync
	w.writeBits(1, 5)          // numsats
	w.writeBits(0, 4)          // smoothing
	writeGPS1001Sat(w, 5)

	week, tow := 2000, 0
	d := &GPSDecoder{}
	result, err := d.Decode(w.buf, 1001, &week, &tow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Satellites) != 1 {
		t.Fatalf("expected 1 satellite, got %d", len(result.Satellites))
	}
	sat := result.Satellites[0]
	if sat.PRN != 5 {
		t.Errorf("PRN = %d, want 5", sat.PRN)
	}
	if !sat.DataFlags.Has(rtcmdata.C1Data) || !sat.DataFlags.Has(rtcmdata.L1CData) {
		t.Error("expected C1 and L1C data flags set")
	}
	if sat.AuxFlags&rtcmdata.FlagLockLossL1 != 0 {
		t.Error("lock 5 after a stored 0 is neither a decrease nor zero, so no lock loss should be reported")
	}
	if result.SyncFlag {
		t.Error("sync flag should be clear")
	}
	if tow != 123456 {
		t.Errorf("tow = %d, want 123456", tow)
	}
}

func TestGPSDecodeInvalidPseudorangeSentinelSkipsFlags(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(1001, 12)
	w.writeBits(0, 12) // station ID
	w.writeBits(0, 30)
	w.writeBits(0, 1)
	w.writeBits(1, 5)
	w.writeBits(0, 4)
	w.writeBits(9, 6)     // sv
	w.writeBits(0, 1)     // code
	w.writeBits(500, 24)  // l1range
	w.writeSigned(1<<19, 20) // the invalid sentinel, 0x80000
	w.writeBits(3, 7)     // lock

	week, tow := 0, 0
	d := &GPSDecoder{}
	result, err := d.Decode(w.buf, 1001, &week, &tow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Satellites[0].DataFlags.Has(rtcmdata.C1Data) {
		t.Error("expected no code/phase data for the invalid sentinel")
	}
}

func TestGPSDecodeRejectsWrongMessageType(t *testing.T) {
	d := &GPSDecoder{}
	week, tow := 0, 0
	if _, err := d.Decode([]byte{0, 0, 0}, 1009, &week, &tow); err == nil {
		t.Error("expected an error for a non-GPS message type")
	}
}

func TestGlonassDecodeOneSatellite(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(1009, 12)
	w.writeBits(0, 12)        // station ID
	w.writeBits(43200000, 27) // tk: noon Moscow, in ms
	w.writeBits(0, 1)         // sync
	w.writeBits(1, 5)         // numsats
	w.writeBits(0, 4)

	w.writeBits(3, 6)      // sv
	w.writeBits(0, 1)      // code
	w.writeBits(10, 5)     // channel
	w.writeBits(2000, 25)  // l1range
	w.writeSigned(50, 20)
	w.writeBits(6, 7) // lock

	week, tow := 2000, 3*24*60*60
	channelFreq := make([]int, 24)
	d := &GlonassDecoder{}
	result, err := d.Decode(w.buf, 1009, &week, &tow, channelFreq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Satellites) != 1 {
		t.Fatalf("expected 1 satellite, got %d", len(result.Satellites))
	}
	if result.Satellites[0].PRN != 40 { // sv-1+38 = 3-1+38 = 40
		t.Errorf("PRN = %d, want 40", result.Satellites[0].PRN)
	}
	if channelFreq[2] != 103 { // 100+10-7
		t.Errorf("channelFreq[2] = %d, want 103", channelFreq[2])
	}
}

func TestGlonassDecodeDiscardsIllegalSlot(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(1009, 12)
	w.writeBits(0, 12) // station ID
	w.writeBits(0, 27)
	w.writeBits(0, 1)
	w.writeBits(1, 5)
	w.writeBits(0, 4)

	w.writeBits(0, 6) // sv == 0, illegal
	w.writeBits(0, 1)
	w.writeBits(0, 5)
	w.writeBits(0, 25)
	w.writeSigned(0, 20)
	w.writeBits(0, 7)

	week, tow := 0, 0
	d := &GlonassDecoder{}
	result, err := d.Decode(w.buf, 1009, &week, &tow, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Satellites) != 0 {
		t.Errorf("expected the illegal slot to be discarded, got %d satellites", len(result.Satellites))
	}
}
