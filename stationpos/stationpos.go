// Package stationpos decodes the antenna reference point messages, RTCM
// 1005 (no antenna height) and 1006 (with antenna height). Field widths
// and scales are ground-truthed against the reference decoder's
// case 1005: case 1006: handling.
package stationpos

import (
	"fmt"

	"github.com/goblimey/rtcm2rinex/bitstream"
	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

// ecefScale converts the 38-bit signed ECEF coordinate fields to metres;
// the field is in units of 0.1mm.
const ecefScale = 0.0001

// Decode reads a 1005 or 1006 message body (the bitstream positioned at
// the message type field) and returns its station position. messageType
// must be 1005 or 1006; HasHeight/AntennaHeight are only populated for
// 1006.
func Decode(payload []byte, messageType int) (*rtcmdata.StationPosition, error) {
	if messageType != 1005 && messageType != 1006 {
		return nil, fmt.Errorf("stationpos: unsupported message type %d", messageType)
	}

	r := bitstream.New(payload)

	if _, err := r.Bits(12); err != nil { // message number
		return nil, err
	}
	stationID, err := r.Bits(12)
	if err != nil {
		return nil, err
	}
	itrfYear, err := r.Bits(6)
	if err != nil {
		return nil, err
	}
	gpsIndicator, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	glonassIndicator, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	galileoIndicator, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	refStationIndicator, err := r.Bits(1)
	if err != nil {
		return nil, err
	}

	x, err := r.SignedFloat(38, ecefScale)
	if err != nil {
		return nil, err
	}
	singleReceiverOscillator, err := r.Bits(1)
	if err != nil {
		return nil, err
	}
	if err := r.Skip(1); err != nil { // reserved
		return nil, err
	}

	y, err := r.SignedFloat(38, ecefScale)
	if err != nil {
		return nil, err
	}
	quarterCycleIndicator, err := r.Bits(2)
	if err != nil {
		return nil, err
	}

	z, err := r.SignedFloat(38, ecefScale)
	if err != nil {
		return nil, err
	}

	pos := &rtcmdata.StationPosition{
		StationID:                 uint(stationID),
		ITRFRealizationYear:       uint(itrfYear),
		GPSIndicator:              gpsIndicator != 0,
		GlonassIndicator:          glonassIndicator != 0,
		GalileoIndicator:          galileoIndicator != 0,
		ReferenceStationIndicator: refStationIndicator != 0,
		X:                         x,
		Y:                         y,
		Z:                         z,
		SingleReceiverOscillator:  singleReceiverOscillator != 0,
		QuarterCycleIndicator:     uint(quarterCycleIndicator),
	}

	if messageType == 1006 {
		height, err := r.Float(16, ecefScale)
		if err != nil {
			return nil, err
		}
		pos.HasHeight = true
		pos.AntennaHeight = height
	}

	return pos, nil
}
