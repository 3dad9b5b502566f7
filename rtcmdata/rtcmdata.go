// Package rtcmdata holds the decoded-measurement data model shared by every
// message decoder: the per-satellite observation entry types, the epoch
// record that accumulates them, and the ephemeris and station-position
// records. The entry-type numbering and flag bits mirror the reference
// decoder's GNSSENTRY_xxx / GNSSDF_xxx macros so the mapping from an RTCM
// field to a slot is unambiguous, but flags live as typed Go constants
// instead of preprocessor bit positions.
package rtcmdata

import (
	"fmt"
	"math/bits"
	"strings"
)

// EntryType identifies one of the forty observation slots a satellite can
// carry: a code, phase, Doppler or SNR measurement on one of ten signal
// bands. The numeric value matches the reference decoder's GNSSENTRY_xxx
// constant for that slot, which is also the bit position used in Flags.
type EntryType int

// Measurement kinds, combined with a band to form an EntryType.
const (
	entryCode = iota
	entryPhase
	entryDoppler
	entrySNR
)

// Signal bands, each occupying four consecutive EntryType values (code,
// phase, Doppler, SNR in that order).
const (
	bandC1 = iota << 2
	bandC2
	bandP1
	bandP2
	bandC5
	bandC6
	bandC5B
	bandC5AB
	bandCSAIF
	bandC1N
)

// The forty entry types, named the way the reference decoder names its
// data fields.
const (
	C1Data EntryType = bandC1 + entryCode
	L1CData EntryType = bandC1 + entryPhase
	D1CData EntryType = bandC1 + entryDoppler
	S1CData EntryType = bandC1 + entrySNR

	C2Data EntryType = bandC2 + entryCode
	L2CData EntryType = bandC2 + entryPhase
	D2CData EntryType = bandC2 + entryDoppler
	S2CData EntryType = bandC2 + entrySNR

	P1Data EntryType = bandP1 + entryCode
	L1PData EntryType = bandP1 + entryPhase
	D1PData EntryType = bandP1 + entryDoppler
	S1PData EntryType = bandP1 + entrySNR

	P2Data EntryType = bandP2 + entryCode
	L2PData EntryType = bandP2 + entryPhase
	D2PData EntryType = bandP2 + entryDoppler
	S2PData EntryType = bandP2 + entrySNR

	C5Data EntryType = bandC5 + entryCode
	L5Data EntryType = bandC5 + entryPhase
	D5Data EntryType = bandC5 + entryDoppler
	S5Data EntryType = bandC5 + entrySNR

	C6Data EntryType = bandC6 + entryCode
	L6Data EntryType = bandC6 + entryPhase
	D6Data EntryType = bandC6 + entryDoppler
	S6Data EntryType = bandC6 + entrySNR

	C5BData EntryType = bandC5B + entryCode
	L5BData EntryType = bandC5B + entryPhase
	D5BData EntryType = bandC5B + entryDoppler
	S5BData EntryType = bandC5B + entrySNR

	C5ABData EntryType = bandC5AB + entryCode
	L5ABData EntryType = bandC5AB + entryPhase
	D5ABData EntryType = bandC5AB + entryDoppler
	S5ABData EntryType = bandC5AB + entrySNR

	CSAIFData EntryType = bandCSAIF + entryCode
	LSAIFData EntryType = bandCSAIF + entryPhase
	DSAIFData EntryType = bandCSAIF + entryDoppler
	SSAIFData EntryType = bandCSAIF + entrySNR

	C1NData EntryType = bandC1N + entryCode
	L1NData EntryType = bandC1N + entryPhase
	D1NData EntryType = bandC1N + entryDoppler
	S1NData EntryType = bandC1N + entrySNR

	// NumEntryTypes is the number of distinct observation slots a
	// satellite can carry.
	NumEntryTypes = 40

	// MaxSatellites bounds the per-epoch satellite table.
	MaxSatellites = 64
)

// EntryFlag reports which EntryType slots in a satellite's measurement
// array hold valid data. It's a bitmask over EntryType values, built with
// the same bit position the reference decoder's GNSSDF_xxx macros use, so
// a 64-bit word isn't wide enough for all forty slots is never true (40 <
// 64) but a uint64 keeps the mask cheap to copy and compare.
type EntryFlag uint64

// Bit returns the mask bit corresponding to an EntryType.
func (t EntryType) Bit() EntryFlag {
	return EntryFlag(1) << uint(t)
}

// Has reports whether flags includes the bit for t.
func (f EntryFlag) Has(t EntryType) bool {
	return f&t.Bit() != 0
}

// Set returns flags with t's bit set.
func (f EntryFlag) Set(t EntryType) EntryFlag {
	return f | t.Bit()
}

// AuxFlag carries secondary per-satellite qualifiers that don't fit the
// code/phase/Doppler/SNR grid: cross-correlation and per-band lock-loss
// markers.
type AuxFlag uint32

const (
	FlagXCorrL2 AuxFlag = 1 << iota
	FlagLockLossL1
	FlagLockLossL2
	FlagLockLossL5
	FlagLockLossE6
	FlagLockLossE5B
	FlagLockLossE5AB
	_
	_
	FlagLockLossSAIF
)

// Satellite holds one satellite's measurements for a single epoch. PRN is
// the unified satellite number from package prn.
type Satellite struct {
	PRN          uint
	Measurements [NumEntryTypes]float64
	DataFlags    EntryFlag
	AuxFlags     AuxFlag
	SNRL1        int
	SNRL2        int
}

// Epoch is one assembled observation epoch: every satellite's
// measurements stamped with a common GPS week and time of week.
// AmbiguityWarning is set if any contributing message left a pseudorange
// ambiguity unresolved (no integer-ambiguity field, or a zero one), so
// the emitter should insert the "All values are modulo 299792.458"
// RINEX comment for this epoch.
type Epoch struct {
	Week             int
	TimeOfWeekMS     float64
	Satellites       []Satellite
	AmbiguityWarning bool
}

// FindSatellite returns a pointer to the satellite entry for prn, creating
// and appending one if it isn't already present.
func (e *Epoch) FindSatellite(prn uint) *Satellite {
	for i := range e.Satellites {
		if e.Satellites[i].PRN == prn {
			return &e.Satellites[i]
		}
	}
	e.Satellites = append(e.Satellites, Satellite{PRN: prn})
	return &e.Satellites[len(e.Satellites)-1]
}

// String renders an epoch for the rtcmdump-style display: a summary line
// followed by one line per satellite.
func (e *Epoch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  week %d, time of week %.3fs, %d satellite(s)\n",
		e.Week, e.TimeOfWeekMS/1000.0, len(e.Satellites))
	if e.AmbiguityWarning {
		b.WriteString("  pseudorange ambiguity unresolved on at least one signal\n")
	}
	for _, sat := range e.Satellites {
		fmt.Fprintf(&b, "  %s\n", sat.String())
	}
	return b.String()
}

// String renders one satellite's measurement summary.
func (s Satellite) String() string {
	str := fmt.Sprintf("PRN %2d: %d measurement(s)", s.PRN, bits.OnesCount64(uint64(s.DataFlags)))
	if s.SNRL1 > 0 {
		str += fmt.Sprintf(", SNR L1 %d", s.SNRL1)
	}
	if s.SNRL2 > 0 {
		str += fmt.Sprintf(", SNR L2 %d", s.SNRL2)
	}
	return str
}

// R2RPi is the value of pi used to scale GPS/Galileo semicircle fields,
// taken verbatim from the reference decoder rather than math.Pi so the
// decoded angles match it bit for bit.
const R2RPi = 3.1415926535898

// GPSEphemerisFlag marks auxiliary GPS ephemeris conditions.
type GPSEphemerisFlag int

const (
	GPSEphL2PCodeDataOff GPSEphemerisFlag = 1 << iota
	GPSEphL2PCodeAvailable
	GPSEphL2CACodeAvailable
	GPSEphValidated
)

// GPSEphemeris is a decoded GPS LNAV navigation message (RTCM 1019).
type GPSEphemeris struct {
	Flags          GPSEphemerisFlag
	Satellite      uint
	IODE           int
	URAIndex       int
	SVHealth       int
	GPSWeek        int
	IODC           int
	TOW            int
	TOC            int
	TOE            int
	ClockBias      float64
	ClockDrift     float64
	ClockDriftRate float64
	Crs            float64
	DeltaN         float64
	M0             float64
	Cuc            float64
	Eccentricity   float64
	Cus            float64
	SqrtA          float64
	Cic            float64
	Omega0         float64
	Cis            float64
	I0             float64
	Crc            float64
	Omega          float64
	OmegaDot       float64
	IDOT           float64
	TGD            float64
}

// GLONASSEphemerisFlag marks auxiliary GLONASS ephemeris conditions.
type GLONASSEphemerisFlag int

const (
	GLOEphUnhealthy GLONASSEphemerisFlag = 1 << iota
	GLOEphAlmanacHealthOK
	GLOEphAlmanacHealthy
	GLOEphPAvailable
	GLOEphP10True
	GLOEphP11True
	GLOEphP2True
	GLOEphP3True
)

// GLONASSEphemeris is a decoded GLONASS navigation message (RTCM 1020).
// Position, velocity and acceleration are stored in kilometres/seconds, as
// the message encodes them, not metres.
type GLONASSEphemeris struct {
	GPSWeek           int
	GPSTOW            int
	Flags             GLONASSEphemerisFlag
	AlmanacNumber     int
	FrequencyNumber   int
	Tb                int
	Tk                int
	E                 int
	Tau               float64
	Gamma             float64
	XPos              float64
	XVelocity         float64
	XAcceleration     float64
	YPos              float64
	YVelocity         float64
	YAcceleration     float64
	ZPos              float64
	ZVelocity         float64
	ZAcceleration     float64
}

// GalileoEphemerisFlag marks auxiliary Galileo ephemeris conditions.
type GalileoEphemerisFlag int

const (
	GalEphE5aDVSInvalid GalileoEphemerisFlag = 1 << iota
)

// GalileoEphemeris is a decoded Galileo F/NAV navigation message (RTCM 1045).
type GalileoEphemeris struct {
	Flags          GalileoEphemerisFlag
	Satellite      uint
	IODNav         int
	TOC            int
	TOE            int
	ClockBias      float64
	ClockDrift     float64
	ClockDriftRate float64
	Crs            float64
	DeltaN         float64
	M0             float64
	Cuc            float64
	Eccentricity   float64
	Cus            float64
	SqrtA          float64
	Cic            float64
	Omega0         float64
	Cis            float64
	I0             float64
	Crc            float64
	Omega          float64
	OmegaDot       float64
	IDOT           float64
	BGD1_5A        float64
	BGD1_5B        float64
	Week           int
	SISA           int
	E5aHS          int
}

// StationPosition is a decoded antenna reference point (RTCM 1005/1006).
// HasHeight is false for 1005, which carries no antenna height field.
type StationPosition struct {
	StationID             uint
	ITRFRealizationYear   uint
	GPSIndicator          bool
	GlonassIndicator      bool
	GalileoIndicator      bool
	ReferenceStationIndicator bool
	X, Y, Z               float64
	SingleReceiverOscillator bool
	QuarterCycleIndicator uint
	HasHeight             bool
	AntennaHeight         float64
}
