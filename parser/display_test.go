package parser

import (
	"strings"
	"testing"

	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

func TestResultStringEpochReady(t *testing.T) {
	epoch := &rtcmdata.Epoch{Week: 1680, TimeOfWeekMS: 432000000, AmbiguityWarning: true}
	epoch.FindSatellite(5)
	r := Result{Kind: KindEpochReady, MessageType: 1002, Epoch: epoch}

	got := r.String()
	for _, want := range []string{"message type 1002", "Extended L1-only GPS RTK", "PRN  5", "ambiguity unresolved"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want it to contain %q", got, want)
		}
	}
}

func TestResultStringUnknown(t *testing.T) {
	r := Result{Kind: KindUnknown, MessageType: 1230}
	got := r.String()
	if !strings.Contains(got, "don't know how to decode") {
		t.Errorf("String() = %q, want the unrecognized-decode notice", got)
	}
}

func TestResultStringEphemerisGPS(t *testing.T) {
	r := Result{
		Kind:        KindEphemerisGPS,
		MessageType: 1019,
		GPSEphemeris: &rtcmdata.GPSEphemeris{
			Satellite: 7,
			GPSWeek:   1680,
			TOE:       32000,
		},
	}
	got := r.String()
	for _, want := range []string{"GPS ephemeris", "satellite 7", "GPS week 1680", "32000"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want it to contain %q", got, want)
		}
	}
}
