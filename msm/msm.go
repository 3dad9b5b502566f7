// Package msm decodes the Multiple Signal Message family (RTCM 1071-1097):
// GPS, GLONASS and Galileo observations that carry an arbitrary signal set
// per satellite, addressed through the satellite/signal/cell masks package
// msmheader decodes. Field widths and scale factors are ground-truthed
// against the reference decoder's per-subtype case bodies.
//
// The reference decoder's switch on subtype falls through from its case 6
// into case 7's field reads (a missing break), so as shipped it decodes
// MSM6 messages as though they carried MSM7's extra Doppler field. This
// package decodes MSM6 independently, with its own four-field read and an
// explicit end to the switch.
package msm

import (
	"fmt"

	"github.com/goblimey/rtcm2rinex/bitstream"
	"github.com/goblimey/rtcm2rinex/gnsstime"
	"github.com/goblimey/rtcm2rinex/msmheader"
	"github.com/goblimey/rtcm2rinex/prn"
	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

// signalEntry names the measurement slots and lock-loss flag one MSM signal
// number maps to, plus its wavelength. A zero Lock means the slot carries
// no signal (lock loss can't have a valid zero value, so it doubles as the
// "unused" marker).
type signalEntry struct {
	Code, Phase, Doppler, SNR rtcmdata.EntryType
	Lock                      rtcmdata.AuxFlag
	Wavelength                float64
}

// GLONASS wavelengths depend on the transmitting satellite's frequency
// channel, so the table only records which band (L1 or L2) a slot belongs
// to; resolveGlonassWavelength looks up the real value per satellite.
const (
	wlGlonassL1 = -1.0
	wlGlonassL2 = -2.0
)

func gpsSignalTable() [32]signalEntry {
	var t [32]signalEntry
	l1c := signalEntry{rtcmdata.C1Data, rtcmdata.L1CData, rtcmdata.D1CData, rtcmdata.S1CData, rtcmdata.FlagLockLossL1, prn.WavelengthL1}
	l1p := signalEntry{rtcmdata.P1Data, rtcmdata.L1PData, rtcmdata.D1PData, rtcmdata.S1PData, rtcmdata.FlagLockLossL1, prn.WavelengthL1}
	l2c := signalEntry{rtcmdata.C2Data, rtcmdata.L2CData, rtcmdata.D2CData, rtcmdata.S2CData, rtcmdata.FlagLockLossL2, prn.WavelengthL2}
	l2p := signalEntry{rtcmdata.P2Data, rtcmdata.L2PData, rtcmdata.D2PData, rtcmdata.S2PData, rtcmdata.FlagLockLossL2, prn.WavelengthL2}
	l5 := signalEntry{rtcmdata.C5Data, rtcmdata.L5Data, rtcmdata.D5Data, rtcmdata.S5Data, rtcmdata.FlagLockLossL5, prn.WavelengthL5}
	t[1], t[2], t[3], t[4] = l1c, l1p, l1p, l1p // slots 2-5: 1C,1P,1W,1Y
	t[7], t[8], t[9], t[10] = l2c, l2p, l2p, l2p // slots 8-11: 2C,2P,2W,2Y
	t[14], t[15], t[16] = l2c, l2c, l2c          // slots 15-17: 2S,2L,2X
	t[21], t[22], t[23] = l5, l5, l5             // slots 22-24: 5I,5Q,5X
	return t
}

func glonassSignalTable() [32]signalEntry {
	var t [32]signalEntry
	l1c := signalEntry{rtcmdata.C1Data, rtcmdata.L1CData, rtcmdata.D1CData, rtcmdata.S1CData, rtcmdata.FlagLockLossL1, wlGlonassL1}
	l1p := signalEntry{rtcmdata.P1Data, rtcmdata.L1PData, rtcmdata.D1PData, rtcmdata.S1PData, rtcmdata.FlagLockLossL1, wlGlonassL1}
	l2c := signalEntry{rtcmdata.C2Data, rtcmdata.L2CData, rtcmdata.D2CData, rtcmdata.S2CData, rtcmdata.FlagLockLossL2, wlGlonassL2}
	l2p := signalEntry{rtcmdata.P2Data, rtcmdata.L2PData, rtcmdata.D2PData, rtcmdata.S2PData, rtcmdata.FlagLockLossL2, wlGlonassL2}
	t[1], t[2] = l1c, l1p // slots 2-3: 1C,1P
	t[7], t[8] = l2c, l2p // slots 8-9: 2C,2P
	return t
}

func galileoSignalTable() [32]signalEntry {
	var t [32]signalEntry
	e1 := signalEntry{rtcmdata.C1Data, rtcmdata.L1CData, rtcmdata.D1CData, rtcmdata.S1CData, rtcmdata.FlagLockLossL1, prn.WavelengthL1}
	e6 := signalEntry{rtcmdata.C6Data, rtcmdata.L6Data, rtcmdata.D6Data, rtcmdata.S6Data, rtcmdata.FlagLockLossE6, prn.WavelengthE6}
	e5b := signalEntry{rtcmdata.C5BData, rtcmdata.L5BData, rtcmdata.D5BData, rtcmdata.S5BData, rtcmdata.FlagLockLossE5B, prn.WavelengthE5B}
	e5ab := signalEntry{rtcmdata.C5ABData, rtcmdata.L5ABData, rtcmdata.D5ABData, rtcmdata.S5ABData, rtcmdata.FlagLockLossE5AB, prn.WavelengthE5AB}
	e5a := signalEntry{rtcmdata.C5Data, rtcmdata.L5Data, rtcmdata.D5Data, rtcmdata.S5Data, rtcmdata.FlagLockLossL5, prn.WavelengthL5}
	t[1], t[2], t[3], t[4], t[5] = e1, e1, e1, e1, e1            // slots 2-6: 1C,1A,1B,1X,1Z
	t[7], t[8], t[9], t[10], t[11] = e6, e6, e6, e6, e6          // slots 8-12: 6I,6Q,6I,6Q,6X
	t[13], t[14], t[15] = e5b, e5b, e5b                          // slots 14-16: 7I,7Q,7X
	t[17], t[18], t[19] = e5ab, e5ab, e5ab                       // slots 18-20: 8I,8Q,8X
	t[21], t[22], t[23] = e5a, e5a, e5a                          // slots 22-24: 5I,5Q,5X
	return t
}

func signalTableFor(constellation string) ([32]signalEntry, error) {
	switch constellation {
	case "GPS":
		return gpsSignalTable(), nil
	case "GLONASS":
		return glonassSignalTable(), nil
	case "Galileo":
		return galileoSignalTable(), nil
	default:
		return [32]signalEntry{}, fmt.Errorf("msm: unsupported constellation %q", constellation)
	}
}

func resolveGlonassWavelength(sentinel float64, channelFreq []int, satSlot uint) float64 {
	if channelFreq == nil || int(satSlot-1) >= len(channelFreq) || satSlot == 0 {
		return 0
	}
	raw := channelFreq[satSlot-1]
	if raw == 0 {
		return 0
	}
	k := raw - 100
	switch sentinel {
	case wlGlonassL1:
		return prn.GlonassWavelengthL1(k)
	case wlGlonassL2:
		return prn.GlonassWavelengthL2(k)
	default:
		return 0
	}
}

// roughRange is a satellite's coarse GNSS satellite range/Doppler, common
// to every signal the satellite carries.
type roughRange struct {
	ms         float64
	dopplerHz  float64
	hasDoppler bool
}

func readRoughRanges(r *bitstream.Reader, subtype msmheader.Subtype, n int) ([]roughRange, error) {
	ranges := make([]roughRange, n)
	hasWhole := subtype >= msmheader.MSM4
	hasDoppler := subtype == msmheader.MSM5 || subtype == msmheader.MSM7

	if hasWhole {
		for i := 0; i < n; i++ {
			whole, err := r.Bits(8)
			if err != nil {
				return nil, err
			}
			ranges[i].ms = float64(whole)
		}
	}
	for i := 0; i < n; i++ {
		frac, err := r.Float(10, 1.0/1024.0)
		if err != nil {
			return nil, err
		}
		ranges[i].ms += frac
	}
	if hasDoppler {
		for i := 0; i < n; i++ {
			d, err := r.SignedBits(14)
			if err != nil {
				return nil, err
			}
			ranges[i].dopplerHz = float64(d)
			ranges[i].hasDoppler = true
		}
	}
	return ranges, nil
}

// cellData is one satellite/signal cell's raw measurements, as read from
// the per-subtype field blocks. The has* flags record which fields the
// subtype actually carries.
type cellData struct {
	psr     float64
	hasPSR  bool
	cp      float64
	hasCP   bool
	lock    uint64
	hasLock bool
	cnr     float64
	hasCNR  bool
	dop     float64
	hasDop  bool
}

func (c cellData) validPSR(subtype msmheader.Subtype) bool {
	if !c.hasPSR {
		return false
	}
	threshold := -327.68
	if subtype == msmheader.MSM6 || subtype == msmheader.MSM7 {
		threshold = -524.288
	}
	return c.psr > threshold
}

func (c cellData) validCP(subtype msmheader.Subtype) bool {
	if !c.hasCP {
		return false
	}
	threshold := -2048.0
	if subtype == msmheader.MSM6 || subtype == msmheader.MSM7 {
		threshold = -2055.0
	}
	return c.cp > threshold
}

func (c cellData) validDop() bool {
	return c.hasDop && c.dop > -1.6384
}

func readCells(r *bitstream.Reader, subtype msmheader.Subtype, n int) ([]cellData, error) {
	cells := make([]cellData, n)

	readPSR := func(bits uint, scale float64) error {
		for i := 0; i < n; i++ {
			v, err := r.SignedFloat(bits, scale)
			if err != nil {
				return err
			}
			cells[i].psr, cells[i].hasPSR = v, true
		}
		return nil
	}
	readCP := func(bits uint, scale float64) error {
		for i := 0; i < n; i++ {
			v, err := r.SignedFloat(bits, scale)
			if err != nil {
				return err
			}
			cells[i].cp, cells[i].hasCP = v, true
		}
		return nil
	}
	readLock := func(bits uint) error {
		for i := 0; i < n; i++ {
			v, err := r.Bits(bits)
			if err != nil {
				return err
			}
			cells[i].lock, cells[i].hasLock = v, true
		}
		return nil
	}
	readCNR := func(bits uint, scale float64) error {
		for i := 0; i < n; i++ {
			v, err := r.Float(bits, scale)
			if err != nil {
				return err
			}
			cells[i].cnr, cells[i].hasCNR = v, true
		}
		return nil
	}
	readDop := func(bits uint, scale float64) error {
		for i := 0; i < n; i++ {
			v, err := r.SignedFloat(bits, scale)
			if err != nil {
				return err
			}
			cells[i].dop, cells[i].hasDop = v, true
		}
		return nil
	}

	switch subtype {
	case msmheader.MSM1:
		if err := readPSR(15, 0.02); err != nil {
			return nil, err
		}
	case msmheader.MSM2:
		if err := readCP(20, 1.0/256.0); err != nil {
			return nil, err
		}
		if err := readLock(4); err != nil {
			return nil, err
		}
	case msmheader.MSM3:
		if err := readPSR(15, 0.02); err != nil {
			return nil, err
		}
		if err := readCP(20, 1.0/256.0); err != nil {
			return nil, err
		}
		if err := readLock(4); err != nil {
			return nil, err
		}
	case msmheader.MSM4:
		if err := readPSR(15, 0.02); err != nil {
			return nil, err
		}
		if err := readCP(20, 1.0/256.0); err != nil {
			return nil, err
		}
		if err := readLock(4); err != nil {
			return nil, err
		}
		if err := readCNR(6, 1.0); err != nil {
			return nil, err
		}
	case msmheader.MSM5:
		if err := readPSR(15, 0.02); err != nil {
			return nil, err
		}
		if err := readCP(20, 1.0/256.0); err != nil {
			return nil, err
		}
		if err := readLock(4); err != nil {
			return nil, err
		}
		if err := readCNR(6, 1.0); err != nil {
			return nil, err
		}
		if err := readDop(15, 0.0001); err != nil {
			return nil, err
		}
	case msmheader.MSM6:
		if err := readPSR(20, 0.001); err != nil {
			return nil, err
		}
		if err := readCP(22, 1.0/1024.0); err != nil {
			return nil, err
		}
		if err := readLock(10); err != nil {
			return nil, err
		}
		if err := readCNR(10, 0.1); err != nil {
			return nil, err
		}
	case msmheader.MSM7:
		if err := readPSR(20, 0.001); err != nil {
			return nil, err
		}
		if err := readCP(22, 1.0/1024.0); err != nil {
			return nil, err
		}
		if err := readLock(10); err != nil {
			return nil, err
		}
		if err := readCNR(10, 0.1); err != nil {
			return nil, err
		}
		if err := readDop(15, 0.0001); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("msm: unsupported subtype %d", subtype)
	}
	return cells, nil
}

// Result is one MSM message's decoded content.
type Result struct {
	MessageType   int
	Constellation string
	Subtype       msmheader.Subtype
	Week          int
	TimeOfWeekMS  float64
	SyncFlag      bool
	Satellites    []rtcmdata.Satellite
}

// Decoder decodes a sequence of MSM messages, tracking per-satellite,
// per-signal lock-time values across calls so lock loss can be detected
// between consecutive messages.
type Decoder struct {
	lastLock map[uint32]uint64
}

func lockKey(satSlot, sigSlot uint) uint32 {
	return uint32(satSlot)<<8 | uint32(sigSlot)
}

// Decode decodes one MSM payload (1071-1097). week/tow are the parser's
// current GPS time reference: for GPS/Galileo messages they're read and,
// on a week rollover, advanced in place; for GLONASS messages they're
// reconciled from the embedded Moscow time via gnsstime.UpdateTime.
// channelFreq, if non-nil, supplies the GLONASS channel-number-by-slot
// table (index slot-1, value 100+k) needed to resolve GLONASS carrier
// wavelengths; see package legacy for how it's populated.
func (d *Decoder) Decode(payload []byte, week *int, tow *int, channelFreq []int) (*Result, error) {
	if d.lastLock == nil {
		d.lastLock = make(map[uint32]uint64)
	}

	h, r, err := msmheader.Decode(payload)
	if err != nil {
		return nil, err
	}

	var towMS int
	switch h.Constellation {
	case "GLONASS":
		tk := int(h.EpochTime) & (1<<27 - 1)
		gnsstime.UpdateTime(week, tow, tk, false)
		towMS = *tow * 1000
	default: // GPS, Galileo
		towMS = int(h.EpochTime)
		if towMS/1000 < *tow-86400 {
			*week++
		}
		*tow = towMS / 1000
	}

	result := &Result{
		MessageType:   h.MessageType,
		Constellation: h.Constellation,
		Subtype:       h.Subtype,
		Week:          *week,
		TimeOfWeekMS:  float64(towMS),
		SyncFlag:      h.MultipleMessage,
	}

	roughRanges, err := readRoughRanges(r, h.Subtype, len(h.Satellites))
	if err != nil {
		return nil, err
	}
	cells, err := readCells(r, h.Subtype, h.NumSignalCells)
	if err != nil {
		return nil, err
	}

	table, err := signalTableFor(h.Constellation)
	if err != nil {
		return nil, err
	}

	epoch := &rtcmdata.Epoch{}
	cellIdx := 0
	for satIdx, satSlot := range h.Satellites {
		rr := roughRanges[satIdx]
		for sigIdx, sigSlot := range h.Signals {
			if !h.Cells[satIdx][sigIdx] {
				continue
			}
			cell := cells[cellIdx]
			cellIdx++

			entry := table[sigSlot-1]
			if entry.Lock == 0 {
				continue // this signal number carries nothing in this constellation
			}

			wl := entry.Wavelength
			if h.Constellation == "GLONASS" {
				wl = resolveGlonassWavelength(entry.Wavelength, channelFreq, satSlot)
			}
			if wl == 0 {
				continue // wavelength unknown: no GLONASS channel seen yet for this slot
			}

			var fullPRN uint
			switch h.Constellation {
			case "GPS":
				fullPRN = satSlot
			case "GLONASS":
				fullPRN = prn.MSMGlonassPRN(satSlot)
			case "Galileo":
				fullPRN = prn.MSMGalileoPRN(satSlot)
			}
			sat := epoch.FindSatellite(fullPRN)

			if cell.validPSR(h.Subtype) {
				sat.Measurements[entry.Code] = cell.psr + rr.ms*prn.OneLightMillisecond
				sat.DataFlags = sat.DataFlags.Set(entry.Code)
			}
			if cell.validCP(h.Subtype) {
				sat.Measurements[entry.Phase] = (cell.cp + rr.ms*prn.OneLightMillisecond) / wl
				sat.DataFlags = sat.DataFlags.Set(entry.Phase)
				key := lockKey(satSlot, sigSlot)
				if d.lastLock[key] != cell.lock {
					sat.AuxFlags |= entry.Lock
					d.lastLock[key] = cell.lock
				}
			}
			if cell.hasCNR {
				sat.Measurements[entry.SNR] = cell.cnr
				sat.DataFlags = sat.DataFlags.Set(entry.SNR)
			}
			if cell.validDop() {
				sat.Measurements[entry.Doppler] = cell.dop + rr.dopplerHz
				sat.DataFlags = sat.DataFlags.Set(entry.Doppler)
			}
		}
	}

	result.Satellites = epoch.Satellites
	return result, nil
}
