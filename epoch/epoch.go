// Package epoch assembles the message-by-message output of the legacy and
// MSM decoders into complete observation epochs. A single epoch is often
// spread across several RTCM messages (for example a 1004 and a 1012
// carrying the same timestamp, or several MSM messages for different
// constellations); this package merges them by satellite and decides when
// an epoch is finished, the way the reference decoder's DataNew/Data
// double buffer does (`rtcm3torinex.c`'s repeated `if(!syncf && !old) {
// handle->Data = *gnss; memset(gnss, 0, sizeof(*gnss)); }` pattern, once
// per message-type case).
package epoch

import "github.com/goblimey/rtcm2rinex/rtcmdata"

// Observation is what a message decoder (package legacy or package msm)
// contributes for one message: a subset of one epoch's satellites, tagged
// with the time they belong to and whether more messages for the same
// epoch are expected.
type Observation struct {
	Week             int
	TimeOfWeekMS     float64
	SyncFlag         bool
	Satellites       []rtcmdata.Satellite
	AmbiguityWarning bool
}

// mergeSatellite copies every measurement src.DataFlags marks as present
// into dst, and ORs in the auxiliary flags. Measurements dst already had
// for slots src doesn't touch are left alone, so two messages describing
// the same satellite's different signals combine correctly.
func mergeSatellite(dst *rtcmdata.Satellite, src rtcmdata.Satellite) {
	for e := rtcmdata.EntryType(0); e < rtcmdata.NumEntryTypes; e++ {
		if src.DataFlags.Has(e) {
			dst.Measurements[e] = src.Measurements[e]
			dst.DataFlags = dst.DataFlags.Set(e)
		}
	}
	dst.AuxFlags |= src.AuxFlags
	if src.SNRL1 != 0 {
		dst.SNRL1 = src.SNRL1
	}
	if src.SNRL2 != 0 {
		dst.SNRL2 = src.SNRL2
	}
}

// Assembler accumulates Observations into complete Epochs. It is not safe
// for concurrent use; a parser owns one Assembler per RTCM stream.
type Assembler struct {
	current rtcmdata.Epoch
	hasData bool
}

// Feed adds one message's observations to the epoch in progress. It
// returns the just-completed epoch if this message either started a new
// one (because its timestamp doesn't match the one in progress) or ended
// one (because its sync flag is clear, meaning no further messages share
// its timestamp). Otherwise it returns nil: the caller should keep
// feeding messages.
func (a *Assembler) Feed(obs Observation) *rtcmdata.Epoch {
	var completed *rtcmdata.Epoch
	timestampChanged := a.hasData && (a.current.TimeOfWeekMS != obs.TimeOfWeekMS || a.current.Week != obs.Week)
	if timestampChanged {
		completed = a.promote()
	}

	a.current.Week = obs.Week
	a.current.TimeOfWeekMS = obs.TimeOfWeekMS
	a.current.AmbiguityWarning = a.current.AmbiguityWarning || obs.AmbiguityWarning
	a.hasData = true
	for _, sat := range obs.Satellites {
		dst := a.current.FindSatellite(sat.PRN)
		mergeSatellite(dst, sat)
	}

	if !obs.SyncFlag && completed == nil {
		completed = a.promote()
	}
	return completed
}

// Flush returns whatever epoch is in progress, if any, and resets the
// assembler. Callers use it at end of stream so a final epoch that never
// saw a sync-clear message isn't silently dropped.
func (a *Assembler) Flush() *rtcmdata.Epoch {
	if !a.hasData {
		return nil
	}
	return a.promote()
}

func (a *Assembler) promote() *rtcmdata.Epoch {
	done := a.current
	a.current = rtcmdata.Epoch{}
	a.hasData = false
	return &done
}
