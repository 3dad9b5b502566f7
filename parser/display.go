package parser

import (
	"fmt"
	"strings"

	"github.com/goblimey/rtcm2rinex/prn"
)

// String renders a Result the way cmd/rtcmdump shows it on its readable
// output stream: a title line naming the message type, then whatever
// decoded detail that Kind carries. Grounded on apps/displayrtcm3's
// per-message dump (title, comment, then a type-specific summary).
func (r Result) String() string {
	title, comment := prn.TitleAndComment(r.MessageType)
	if title == "" {
		title = "unrecognized"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "message type %d: %s\n", r.MessageType, title)
	if comment != "" {
		fmt.Fprintf(&b, "  %s\n", comment)
	}

	switch r.Kind {
	case KindEpochReady:
		b.WriteString(r.Epoch.String())
	case KindEphemerisGPS:
		fmt.Fprintf(&b, "  satellite %d, GPS week %d, time of ephemeris %ds\n",
			r.GPSEphemeris.Satellite, r.GPSEphemeris.GPSWeek, r.GPSEphemeris.TOE)
	case KindEphemerisGLONASS:
		fmt.Fprintf(&b, "  slot %d, frequency channel %d\n",
			r.GLONASSEphemeris.AlmanacNumber, r.GLONASSEphemeris.FrequencyNumber)
	case KindEphemerisGalileo:
		fmt.Fprintf(&b, "  satellite %d, time of ephemeris %ds\n",
			r.GalileoEphemeris.Satellite, r.GalileoEphemeris.TOE)
	case KindStationPosition:
		fmt.Fprintf(&b, "  station %d at (%.4f, %.4f, %.4f)\n",
			r.StationPosition.StationID, r.StationPosition.X, r.StationPosition.Y, r.StationPosition.Z)
	case KindUnknown:
		b.WriteString("  (don't know how to decode this)\n")
	}
	return b.String()
}
