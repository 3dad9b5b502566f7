// Package legacy decodes the RTCM legacy observation messages: GPS
// 1001-1004 and GLONASS 1009-1012. Each message carries one epoch's worth
// of per-satellite code/phase/Doppler-free measurements; field widths,
// scale factors and the lock-loss/ambiguity handling are ground-truthed
// against the reference decoder's case bodies for these message types.
package legacy

import (
	"fmt"

	"github.com/goblimey/rtcm2rinex/bitstream"
	"github.com/goblimey/rtcm2rinex/gnsstime"
	"github.com/goblimey/rtcm2rinex/prn"
	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

const (
	ambiguityGPSMetres     = 299792.458
	ambiguityGLONASSMetres = 599584.916
	invalidPseudorange20   = 1 << 19 // 0x80000, the "no data" sentinel for a 20-bit signed field
	invalidPhase14         = 1 << 13 // 0x2000, the sentinel for the 14-bit signed L2 code-phase field
)

// Result is one legacy message's decoded content: a sync flag and the
// measurements for every satellite the message carries. Epoch assembly
// (promoting DataNew to Data at a sync-clear or timestamp change) is the
// epoch package's job; this package only decodes.
type Result struct {
	MessageType  int
	Week         int
	TimeOfWeekMS float64
	SyncFlag     bool
	HadAmbiguity bool
	Satellites   []rtcmdata.Satellite
}

func clampSNR(raw uint64) int {
	v := int(raw) / (4 * 4)
	if v > 9 {
		return 9
	}
	if v < 1 {
		return 1
	}
	return v
}

// GPSDecoder decodes RTCM 1001-1004 messages, carrying forward the
// previous message's per-satellite lock-time indicators so lock loss can
// be detected across messages.
type GPSDecoder struct {
	lastLockL1 [64]uint64
	lastLockL2 [64]uint64
}

// Decode decodes one 1001-1004 payload. week/tow are the parser's current
// GPS time reference; they are read and, on a week rollover, advanced in
// place the way the reference decoder advances handle->GPSWeek.
func (d *GPSDecoder) Decode(payload []byte, messageType int, week *int, tow *int) (*Result, error) {
	if messageType < 1001 || messageType > 1004 {
		return nil, fmt.Errorf("legacy: %d is not a GPS legacy observation message", messageType)
	}

	r := bitstream.New(payload)
	if err := r.Skip(12); err != nil { // message number
		return nil, err
	}
	if err := r.Skip(12); err != nil { // reference station ID
		return nil, err
	}
	rawTOW, err := r.Bits(30)
	if err != nil {
		return nil, err
	}
	towMS := int(rawTOW)

	if towMS/1000 < *tow-86400 {
		*week++
	}
	*tow = towMS / 1000

	syncRaw, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	numsats, err := r.Bits(5)
	if err != nil {
		return nil, err
	}
	if err := r.Skip(4); err != nil { // smoothing indicator/interval
		return nil, err
	}

	var lastLockL1, lastLockL2 [64]uint64
	result := &Result{
		MessageType:  messageType,
		Week:         *week,
		TimeOfWeekMS: float64(towMS),
		SyncFlag:     syncRaw != 0,
	}

	for i := uint64(0); i < numsats; i++ {
		sv, err := r.Bits(6)
		if err != nil {
			return nil, err
		}
		fullSat := prn.LegacyGPSPRN(uint(sv))
		sat := rtcmdata.Satellite{PRN: fullSat}

		code1, err := r.Bits(1)
		if err != nil {
			return nil, err
		}
		codeEntry, phaseEntry, snrEntry := rtcmdata.C1Data, rtcmdata.L1CData, rtcmdata.S1CData
		if code1 != 0 {
			codeEntry, phaseEntry, snrEntry = rtcmdata.P1Data, rtcmdata.L1PData, rtcmdata.S1PData
		}

		l1range, err := r.Bits(24)
		if err != nil {
			return nil, err
		}
		phaseDelta, err := r.SignedBits(20)
		if err != nil {
			return nil, err
		}
		if uint64(phaseDelta)&(1<<20-1) != invalidPseudorange20 {
			sat.DataFlags = sat.DataFlags.Set(codeEntry).Set(phaseEntry)
			sat.Measurements[codeEntry] = float64(l1range) * 0.02
			sat.Measurements[phaseEntry] = float64(l1range)*0.02 + float64(phaseDelta)*0.0005
		}

		lock1, err := r.Bits(7)
		if err != nil {
			return nil, err
		}
		lastLockL1[sv] = lock1
		if d.lastLockL1[sv] > lock1 || lock1 == 0 {
			sat.AuxFlags |= rtcmdata.FlagLockLossL1
		}

		var ambiguity uint64
		if messageType == 1002 || messageType == 1004 {
			ambiguity, err = r.Bits(8)
			if err != nil {
				return nil, err
			}
			if ambiguity != 0 && sat.DataFlags.Has(codeEntry) {
				sat.Measurements[codeEntry] += float64(ambiguity) * ambiguityGPSMetres
				sat.Measurements[phaseEntry] += float64(ambiguity) * ambiguityGPSMetres
				result.HadAmbiguity = true
			}
			cnr, err := r.Bits(8)
			if err != nil {
				return nil, err
			}
			if cnr != 0 {
				sat.DataFlags = sat.DataFlags.Set(snrEntry)
				sat.Measurements[snrEntry] = float64(cnr) * 0.25
				sat.SNRL1 = clampSNR(cnr)
			}
		}
		sat.Measurements[phaseEntry] /= prn.WavelengthL1

		if messageType == 1003 || messageType == 1004 {
			code2, err := r.Bits(2)
			if err != nil {
				return nil, err
			}
			codeEntry2, phaseEntry2, snrEntry2 := rtcmdata.C2Data, rtcmdata.L2CData, rtcmdata.S2CData
			if code2 != 0 {
				codeEntry2, phaseEntry2, snrEntry2 = rtcmdata.P2Data, rtcmdata.L2PData, rtcmdata.S2PData
				if code2 >= 2 {
					sat.AuxFlags |= rtcmdata.FlagXCorrL2
				}
			}

			codeDelta, err := r.SignedBits(14)
			if err != nil {
				return nil, err
			}
			if uint64(codeDelta)&(1<<14-1) != invalidPhase14 {
				sat.DataFlags = sat.DataFlags.Set(codeEntry2)
				sat.Measurements[codeEntry2] = float64(l1range)*0.02 + float64(codeDelta)*0.02 + float64(ambiguity)*ambiguityGPSMetres
			}

			phaseDelta2, err := r.SignedBits(20)
			if err != nil {
				return nil, err
			}
			if uint64(phaseDelta2)&(1<<20-1) != invalidPseudorange20 {
				sat.DataFlags = sat.DataFlags.Set(phaseEntry2)
				sat.Measurements[phaseEntry2] = float64(l1range)*0.02 + float64(phaseDelta2)*0.0005 + float64(ambiguity)*ambiguityGPSMetres
			}

			lock2, err := r.Bits(7)
			if err != nil {
				return nil, err
			}
			lastLockL2[sv] = lock2
			if d.lastLockL2[sv] > lock2 || lock2 == 0 {
				sat.AuxFlags |= rtcmdata.FlagLockLossL2
			}

			if messageType == 1004 {
				cnr2, err := r.Bits(8)
				if err != nil {
					return nil, err
				}
				if cnr2 != 0 {
					sat.DataFlags = sat.DataFlags.Set(snrEntry2)
					sat.Measurements[snrEntry2] = float64(cnr2) * 0.25
					sat.SNRL2 = clampSNR(cnr2)
				}
			}
			sat.Measurements[phaseEntry2] /= prn.WavelengthL2
		}

		result.Satellites = append(result.Satellites, sat)
	}

	d.lastLockL1 = lastLockL1
	d.lastLockL2 = lastLockL2
	result.Week = *week
	return result, nil
}

// GlonassDecoder decodes RTCM 1009-1012 messages.
type GlonassDecoder struct {
	lastLockL1 [64]uint64
	lastLockL2 [64]uint64
}

// Decode decodes one 1009-1012 payload, reconciling the embedded Moscow
// tk field against week/tow in place via gnsstime.UpdateTime. channelFreq,
// if non-nil, receives the GLONASS channel-number-by-slot table (index
// sv-1, value 100+channel) the way the reference decoder's GLOFreq does.
func (d *GlonassDecoder) Decode(payload []byte, messageType int, week *int, tow *int, channelFreq []int) (*Result, error) {
	if messageType < 1009 || messageType > 1012 {
		return nil, fmt.Errorf("legacy: %d is not a GLONASS legacy observation message", messageType)
	}

	r := bitstream.New(payload)
	if err := r.Skip(12); err != nil { // message number
		return nil, err
	}
	if err := r.Skip(12); err != nil { // reference station ID
		return nil, err
	}
	tk, err := r.Bits(27)
	if err != nil {
		return nil, err
	}

	gnsstime.UpdateTime(week, tow, int(tk), false)
	towMS := *tow * 1000

	syncRaw, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	numsats, err := r.Bits(5)
	if err != nil {
		return nil, err
	}
	if err := r.Skip(4); err != nil {
		return nil, err
	}

	var lastLockL1, lastLockL2 [64]uint64
	result := &Result{
		MessageType:  messageType,
		Week:         *week,
		TimeOfWeekMS: float64(towMS),
		SyncFlag:     syncRaw != 0,
	}

	for i := uint64(0); i < numsats; i++ {
		sv, err := r.Bits(6)
		if err != nil {
			return nil, err
		}
		fullSat := prn.LegacyGlonassPRN(uint(sv))
		sat := rtcmdata.Satellite{PRN: fullSat}

		code1, err := r.Bits(1)
		if err != nil {
			return nil, err
		}
		channel, err := r.Bits(5)
		if err != nil {
			return nil, err
		}
		if sv >= 1 && sv <= 24 && channelFreq != nil && int(sv-1) < len(channelFreq) {
			channelFreq[sv-1] = 100 + int(channel) - 7
		}

		codeEntry, phaseEntry, snrEntry := rtcmdata.C1Data, rtcmdata.L1CData, rtcmdata.S1CData
		if code1 != 0 {
			codeEntry, phaseEntry, snrEntry = rtcmdata.P1Data, rtcmdata.L1PData, rtcmdata.S1PData
		}

		l1range, err := r.Bits(25)
		if err != nil {
			return nil, err
		}
		phaseDelta, err := r.SignedBits(20)
		if err != nil {
			return nil, err
		}
		if uint64(phaseDelta)&(1<<20-1) != invalidPseudorange20 {
			sat.DataFlags = sat.DataFlags.Set(codeEntry).Set(phaseEntry)
			sat.Measurements[codeEntry] = float64(l1range) * 0.02
			sat.Measurements[phaseEntry] = float64(l1range)*0.02 + float64(phaseDelta)*0.0005
		}

		lock1, err := r.Bits(7)
		if err != nil {
			return nil, err
		}
		lastLockL1[sv] = lock1
		if d.lastLockL1[sv] > lock1 || lock1 == 0 {
			sat.AuxFlags |= rtcmdata.FlagLockLossL1
		}

		var ambiguity uint64
		if messageType == 1010 || messageType == 1012 {
			ambiguity, err = r.Bits(7)
			if err != nil {
				return nil, err
			}
			if ambiguity != 0 && sat.DataFlags.Has(codeEntry) {
				sat.Measurements[codeEntry] += float64(ambiguity) * ambiguityGLONASSMetres
				sat.Measurements[phaseEntry] += float64(ambiguity) * ambiguityGLONASSMetres
				result.HadAmbiguity = true
			}
			cnr, err := r.Bits(8)
			if err != nil {
				return nil, err
			}
			if cnr != 0 {
				sat.DataFlags = sat.DataFlags.Set(snrEntry)
				sat.Measurements[snrEntry] = float64(cnr) * 0.25
				sat.SNRL1 = clampSNR(cnr)
			}
		}
		sat.Measurements[phaseEntry] /= prn.GlonassWavelengthL1(int(channel) - 7)

		if messageType == 1011 || messageType == 1012 {
			code2, err := r.Bits(2)
			if err != nil {
				return nil, err
			}
			codeEntry2, phaseEntry2, snrEntry2 := rtcmdata.C2Data, rtcmdata.L2CData, rtcmdata.S2CData
			if code2 != 0 {
				codeEntry2, phaseEntry2, snrEntry2 = rtcmdata.P2Data, rtcmdata.L2PData, rtcmdata.S2PData
			}

			codeDelta, err := r.SignedBits(14)
			if err != nil {
				return nil, err
			}
			if uint64(codeDelta)&(1<<14-1) != invalidPhase14 {
				sat.DataFlags = sat.DataFlags.Set(codeEntry2)
				sat.Measurements[codeEntry2] = float64(l1range)*0.02 + float64(codeDelta)*0.02 + float64(ambiguity)*ambiguityGLONASSMetres
			}

			phaseDelta2, err := r.SignedBits(20)
			if err != nil {
				return nil, err
			}
			if uint64(phaseDelta2)&(1<<20-1) != invalidPseudorange20 {
				sat.DataFlags = sat.DataFlags.Set(phaseEntry2)
				sat.Measurements[phaseEntry2] = float64(l1range)*0.02 + float64(phaseDelta2)*0.0005 + float64(ambiguity)*ambiguityGLONASSMetres
			}

			lock2, err := r.Bits(7)
			if err != nil {
				return nil, err
			}
			lastLockL2[sv] = lock2
			if d.lastLockL2[sv] > lock2 || lock2 == 0 {
				sat.AuxFlags |= rtcmdata.FlagLockLossL2
			}

			if messageType == 1012 {
				cnr2, err := r.Bits(8)
				if err != nil {
					return nil, err
				}
				if cnr2 != 0 {
					sat.DataFlags = sat.DataFlags.Set(snrEntry2)
					sat.Measurements[snrEntry2] = float64(cnr2) * 0.25
					sat.SNRL2 = clampSNR(cnr2)
				}
			}
			sat.Measurements[phaseEntry2] /= prn.GlonassWavelengthL2(int(channel) - 7)
		}

		if sv == 0 || sv > 24 {
			continue // illegal slot number, discard this satellite's entry
		}
		result.Satellites = append(result.Satellites, sat)
	}

	d.lastLockL1 = lastLockL1
	d.lastLockL2 = lastLockL2
	return result, nil
}
