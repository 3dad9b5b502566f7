// Package ephemeris decodes the broadcast navigation messages: GPS LNAV
// (RTCM 1019), GLONASS (RTCM 1020) and Galileo F/NAV (RTCM 1045). Field
// widths and scale factors are ground-truthed against the reference
// decoder's GETFLOATSIGN/GETFLOATSIGNM/GETBITSFACTOR call sequences for
// each message type.
package ephemeris

import (
	"github.com/goblimey/rtcm2rinex/bitstream"
	"github.com/goblimey/rtcm2rinex/prn"
	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

// scalePow2 composes a chain of 1/(1<<n) scale factors, the way the
// reference decoder's GETFLOATSIGN calls nest them.
func scalePow2(bits ...int) float64 {
	scale := 1.0
	for _, b := range bits {
		scale /= float64(int64(1) << uint(b))
	}
	return scale
}

// DecodeGPS decodes an RTCM 1019 GPS LNAV ephemeris. currentWeek/currentTOW
// are the parser's current GPS time reference, used only to decide whether
// this ephemeris's TOE should advance that reference (mirroring the
// reference decoder's own heuristic: accept a TOE that lands 5-8 hours
// ahead of the current time of week).
func DecodeGPS(payload []byte, currentWeek, currentTOW int) (eph *rtcmdata.GPSEphemeris, advancesClock bool, err error) {
	r := bitstream.New(payload)
	if _, err := r.Bits(12); err != nil { // message number
		return nil, false, err
	}

	ge := &rtcmdata.GPSEphemeris{}

	sv, err := r.Bits(6)
	if err != nil {
		return nil, false, err
	}
	ge.Satellite = prn.LegacyGPSPRN(uint(sv))

	week, err := r.Bits(10)
	if err != nil {
		return nil, false, err
	}
	ge.GPSWeek = int(week) + 1024

	ura, err := r.Bits(4)
	if err != nil {
		return nil, false, err
	}
	ge.URAIndex = int(ura)

	codeFlags, err := r.Bits(2)
	if err != nil {
		return nil, false, err
	}
	if codeFlags&1 != 0 {
		ge.Flags |= rtcmdata.GPSEphL2PCodeAvailable
	}
	if codeFlags&2 != 0 {
		ge.Flags |= rtcmdata.GPSEphL2CACodeAvailable
	}

	if ge.IDOT, err = r.SignedFloat(14, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	iode, err := r.Bits(8)
	if err != nil {
		return nil, false, err
	}
	ge.IODE = int(iode)

	toc, err := r.Bits(16)
	if err != nil {
		return nil, false, err
	}
	ge.TOC = int(toc) << 4

	if ge.ClockDriftRate, err = r.SignedFloat(8, scalePow2(30, 25)); err != nil {
		return nil, false, err
	}
	if ge.ClockDrift, err = r.SignedFloat(16, scalePow2(30, 13)); err != nil {
		return nil, false, err
	}
	if ge.ClockBias, err = r.SignedFloat(22, scalePow2(30, 1)); err != nil {
		return nil, false, err
	}
	iodc, err := r.Bits(10)
	if err != nil {
		return nil, false, err
	}
	ge.IODC = int(iodc)

	if ge.Crs, err = r.SignedFloat(16, scalePow2(5)); err != nil {
		return nil, false, err
	}
	if ge.DeltaN, err = r.SignedFloat(16, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.M0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.Cuc, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, false, err
	}
	if ge.Eccentricity, err = r.Float(32, scalePow2(30, 3)); err != nil {
		return nil, false, err
	}
	if ge.Cus, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, false, err
	}
	if ge.SqrtA, err = r.Float(32, scalePow2(19)); err != nil {
		return nil, false, err
	}
	toe, err := r.Bits(16)
	if err != nil {
		return nil, false, err
	}
	ge.TOE = int(toe) << 4

	if ge.Cic, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, false, err
	}
	if ge.Omega0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.Cis, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, false, err
	}
	if ge.I0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.Crc, err = r.SignedFloat(16, scalePow2(5)); err != nil {
		return nil, false, err
	}
	if ge.Omega, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.OmegaDot, err = r.SignedFloat(24, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, false, err
	}
	if ge.TGD, err = r.SignedFloat(8, scalePow2(30, 1)); err != nil {
		return nil, false, err
	}
	health, err := r.Bits(6)
	if err != nil {
		return nil, false, err
	}
	ge.SVHealth = int(health)

	l2dataOff, err := r.Bits(1)
	if err != nil {
		return nil, false, err
	}
	if l2dataOff != 0 {
		ge.Flags |= rtcmdata.GPSEphL2PCodeDataOff
	}

	delta := (ge.GPSWeek-currentWeek)*7*24*60*60 + (ge.TOE - currentTOW)
	advancesClock = delta > 5*60*60 && delta < 8*60*60

	return ge, advancesClock, nil
}

// DecodeGalileo decodes an RTCM 1045 Galileo F/NAV ephemeris.
func DecodeGalileo(payload []byte) (*rtcmdata.GalileoEphemeris, error) {
	r := bitstream.New(payload)
	if _, err := r.Bits(12); err != nil {
		return nil, err
	}

	ge := &rtcmdata.GalileoEphemeris{}

	sv, err := r.Bits(6)
	if err != nil {
		return nil, err
	}
	ge.Satellite = uint(sv)

	week, err := r.Bits(12)
	if err != nil {
		return nil, err
	}
	ge.Week = int(week)

	iodnav, err := r.Bits(10)
	if err != nil {
		return nil, err
	}
	ge.IODNav = int(iodnav)

	sisa, err := r.Bits(8)
	if err != nil {
		return nil, err
	}
	ge.SISA = int(sisa)

	if ge.IDOT, err = r.SignedFloat(14, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}

	toc, err := r.Bits(14)
	if err != nil {
		return nil, err
	}
	ge.TOC = int(toc) * 60

	if ge.ClockDriftRate, err = r.SignedFloat(6, scalePow2(30, 29)); err != nil {
		return nil, err
	}
	if ge.ClockDrift, err = r.SignedFloat(21, scalePow2(30, 16)); err != nil {
		return nil, err
	}
	if ge.ClockBias, err = r.SignedFloat(31, scalePow2(30, 4)); err != nil {
		return nil, err
	}
	if ge.Crs, err = r.SignedFloat(16, scalePow2(5)); err != nil {
		return nil, err
	}
	if ge.DeltaN, err = r.SignedFloat(16, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.M0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.Cuc, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, err
	}
	if ge.Eccentricity, err = r.Float(32, scalePow2(30, 3)); err != nil {
		return nil, err
	}
	if ge.Cus, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, err
	}
	if ge.SqrtA, err = r.Float(32, scalePow2(19)); err != nil {
		return nil, err
	}
	toe, err := r.Bits(14)
	if err != nil {
		return nil, err
	}
	ge.TOE = int(toe) * 60

	if ge.Cic, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, err
	}
	if ge.Omega0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.Cis, err = r.SignedFloat(16, scalePow2(29)); err != nil {
		return nil, err
	}
	if ge.I0, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.Crc, err = r.SignedFloat(16, scalePow2(5)); err != nil {
		return nil, err
	}
	if ge.Omega, err = r.SignedFloat(32, scalePow2(30, 1)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.OmegaDot, err = r.SignedFloat(24, scalePow2(30, 13)*rtcmdata.R2RPi); err != nil {
		return nil, err
	}
	if ge.BGD1_5A, err = r.SignedFloat(10, scalePow2(30, 2)); err != nil {
		return nil, err
	}
	e5ahs, err := r.Bits(2)
	if err != nil {
		return nil, err
	}
	ge.E5aHS = int(e5ahs)

	invalid, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if invalid != 0 {
		ge.Flags |= rtcmdata.GalEphE5aDVSInvalid
	}

	return ge, nil
}

// DecodeGLONASS decodes an RTCM 1020 GLONASS ephemeris. gpsWeek/gpsTOW are
// the parser's current GPS time reference, stamped onto the result since
// GLONASS ephemeris messages carry only Moscow time fields. almanacFreq,
// if non-nil, receives the almanac-slot-to-frequency-number mapping
// (index almanacNumber-1, value 100+frequencyNumber) the way the
// reference decoder's GLOFreq table does.
func DecodeGLONASS(payload []byte, gpsWeek, gpsTOW int, almanacFreq []int) (*rtcmdata.GLONASSEphemeris, error) {
	r := bitstream.New(payload)
	if _, err := r.Bits(12); err != nil {
		return nil, err
	}

	ge := &rtcmdata.GLONASSEphemeris{
		GPSWeek: gpsWeek,
		GPSTOW:  gpsTOW,
		Flags:   rtcmdata.GLOEphPAvailable,
	}

	almanacNumber, err := r.Bits(6)
	if err != nil {
		return nil, err
	}
	ge.AlmanacNumber = int(almanacNumber)

	freqRaw, err := r.Bits(5)
	if err != nil {
		return nil, err
	}
	ge.FrequencyNumber = int(freqRaw) - 7

	if ge.AlmanacNumber >= 1 && ge.AlmanacNumber <= (61-38+1) && almanacFreq != nil && ge.AlmanacNumber-1 < len(almanacFreq) {
		almanacFreq[ge.AlmanacNumber-1] = 100 + ge.FrequencyNumber
	}

	almanacHealthy, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if almanacHealthy != 0 {
		ge.Flags |= rtcmdata.GLOEphAlmanacHealthy
	}

	almanacHealthOK, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if almanacHealthOK != 0 {
		ge.Flags |= rtcmdata.GLOEphAlmanacHealthOK
	}

	p1, err := r.Bits(2)
	if err != nil {
		return nil, err
	}
	if p1&1 != 0 {
		ge.Flags |= rtcmdata.GLOEphP10True
	}
	if p1&2 != 0 {
		ge.Flags |= rtcmdata.GLOEphP11True
	}

	tkHours, err := r.Bits(5)
	if err != nil {
		return nil, err
	}
	ge.Tk = int(tkHours) * 60 * 60

	tkMinutes, err := r.Bits(6)
	if err != nil {
		return nil, err
	}
	ge.Tk += int(tkMinutes) * 60

	tkHalfMinute, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	ge.Tk += int(tkHalfMinute) * 30

	unhealthy, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if unhealthy != 0 {
		ge.Flags |= rtcmdata.GLOEphUnhealthy
	}

	p2, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if p2 != 0 {
		ge.Flags |= rtcmdata.GLOEphP2True
	}

	tb, err := r.Bits(7)
	if err != nil {
		return nil, err
	}
	ge.Tb = int(tb) * 15 * 60

	if ge.XVelocity, err = r.SignMagnitudeFloat(24, scalePow2(20)); err != nil {
		return nil, err
	}
	if ge.XPos, err = r.SignMagnitudeFloat(27, scalePow2(11)); err != nil {
		return nil, err
	}
	if ge.XAcceleration, err = r.SignMagnitudeFloat(5, scalePow2(30)); err != nil {
		return nil, err
	}
	if ge.YVelocity, err = r.SignMagnitudeFloat(24, scalePow2(20)); err != nil {
		return nil, err
	}
	if ge.YPos, err = r.SignMagnitudeFloat(27, scalePow2(11)); err != nil {
		return nil, err
	}
	if ge.YAcceleration, err = r.SignMagnitudeFloat(5, scalePow2(30)); err != nil {
		return nil, err
	}
	if ge.ZVelocity, err = r.SignMagnitudeFloat(24, scalePow2(20)); err != nil {
		return nil, err
	}
	if ge.ZPos, err = r.SignMagnitudeFloat(27, scalePow2(11)); err != nil {
		return nil, err
	}
	if ge.ZAcceleration, err = r.SignMagnitudeFloat(5, scalePow2(30)); err != nil {
		return nil, err
	}

	p3, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if p3 != 0 {
		ge.Flags |= rtcmdata.GLOEphP3True
	}

	if ge.Gamma, err = r.SignMagnitudeFloat(11, scalePow2(30, 10)); err != nil {
		return nil, err
	}
	if err := r.Skip(3); err != nil { // GLONASS-M P, ln (string 3), not decoded: see Non-goals
		return nil, err
	}
	if ge.Tau, err = r.SignMagnitudeFloat(22, scalePow2(30)); err != nil {
		return nil, err
	}
	if err := r.Skip(5); err != nil { // GLONASS-M delta tau n(tb), not decoded
		return nil, err
	}
	e, err := r.Bits(5)
	if err != nil {
		return nil, err
	}
	ge.E = int(e)

	return ge, nil
}
