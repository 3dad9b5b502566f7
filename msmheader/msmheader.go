// Package msmheader decodes the header shared by every Multiple Signal
// Message subtype (1071-1077 GPS, 1081-1087 GLONASS, 1091-1097 Galileo):
// the satellite mask, signal mask and cell mask that say which
// satellite/signal combinations the rest of the message carries
// measurements for.
package msmheader

import (
	"fmt"

	"github.com/goblimey/rtcm2rinex/bitstream"
)

const (
	lenMessageType         = 12
	lenStationID           = 12
	lenEpochTime           = 30
	lenMultipleMessageFlag = 1
	// lenExtendedSatelliteInfo is the IOD/session-time/clock-steering/
	// external-clock/smoothing block squeezed in between the multiple
	// message flag and the satellite mask for MSM6/MSM7 only; every other
	// subtype goes straight from the multiple message flag to the
	// satellite mask.
	lenExtendedSatelliteInfo = 3
	lenSatelliteMask         = 64
	lenSignalMask            = 32

	// MaxCellMaskBits bounds the cell mask: numSatellites * numSignals must
	// never exceed this.
	MaxCellMaskBits = 64
)

// Subtype identifies which of the seven MSM variants a message type is.
type Subtype int

const (
	MSM1 Subtype = iota + 1
	MSM2
	MSM3
	MSM4
	MSM5
	MSM6
	MSM7
)

// SubtypeOf classifies a message type into its MSM subtype and
// constellation name. It returns an error for anything outside the
// 1071-1097 MSM range.
func SubtypeOf(messageType int) (Subtype, string, error) {
	var constellation string
	switch {
	case messageType >= 1071 && messageType <= 1077:
		constellation = "GPS"
	case messageType >= 1081 && messageType <= 1087:
		constellation = "GLONASS"
	case messageType >= 1091 && messageType <= 1097:
		constellation = "Galileo"
	default:
		return 0, "", fmt.Errorf("msmheader: %d is not a supported MSM message type", messageType)
	}
	offset := messageType % 10
	if offset < 1 || offset > 7 {
		return 0, "", fmt.Errorf("msmheader: %d is not a supported MSM message type", messageType)
	}
	return Subtype(offset), constellation, nil
}

// Header holds the fields common to every MSM subtype, plus the satellite,
// signal and cell lists derived from the three masks.
type Header struct {
	MessageType     int
	Subtype         Subtype
	Constellation   string
	StationID       uint
	EpochTime       uint
	MultipleMessage bool

	SatelliteMask uint64
	SignalMask    uint32
	CellMask      uint64

	// Satellites holds the 1-based slot numbers with the satellite mask
	// bit set, in ascending order.
	Satellites []uint
	// Signals holds the 1-based slot numbers with the signal mask bit
	// set, in ascending order.
	Signals []uint
	// Cells[i][j] is true if Satellites[i]/Signals[j] was observed.
	Cells [][]bool

	NumSignalCells int
}

func bitsToSlots(mask uint64, width int) []uint {
	slots := make([]uint, 0)
	for n := 1; n <= width; n++ {
		bitPosition := width - n
		if (mask>>uint(bitPosition))&1 == 1 {
			slots = append(slots, uint(n))
		}
	}
	return slots
}

func cellsFromMask(cellMask uint64, numSatellites, numSignals int) [][]bool {
	numberOfCells := numSatellites * numSignals
	cellNumber := 0
	cells := make([][]bool, numSatellites)
	for i := 0; i < numSatellites; i++ {
		row := make([]bool, numSignals)
		for j := 0; j < numSignals; j++ {
			cellNumber++
			bitPosition := numberOfCells - cellNumber
			row[j] = (cellMask>>uint(bitPosition))&1 == 1
		}
		cells[i] = row
	}
	return cells
}

// Decode reads an MSM header starting at the beginning of payload and
// returns it along with a bitstream.Reader positioned at the first
// satellite-level field, ready for the satellite/signal decoders to
// continue from.
func Decode(payload []byte) (*Header, *bitstream.Reader, error) {
	r := bitstream.New(payload)

	rawType, err := r.Bits(lenMessageType)
	if err != nil {
		return nil, nil, err
	}
	messageType := int(rawType)

	subtype, constellation, err := SubtypeOf(messageType)
	if err != nil {
		return nil, nil, err
	}

	h := &Header{MessageType: messageType, Subtype: subtype, Constellation: constellation}

	stationID, err := r.Bits(lenStationID)
	if err != nil {
		return nil, nil, err
	}
	h.StationID = uint(stationID)

	epochTime, err := r.Bits(lenEpochTime)
	if err != nil {
		return nil, nil, err
	}
	h.EpochTime = uint(epochTime)

	mm, err := r.Bits(lenMultipleMessageFlag)
	if err != nil {
		return nil, nil, err
	}
	h.MultipleMessage = mm == 1

	if subtype == MSM6 || subtype == MSM7 {
		if _, err := r.Bits(lenExtendedSatelliteInfo); err != nil {
			return nil, nil, err
		}
	}

	satelliteMask, err := r.Bits(lenSatelliteMask)
	if err != nil {
		return nil, nil, err
	}
	h.SatelliteMask = satelliteMask
	h.Satellites = bitsToSlots(satelliteMask, lenSatelliteMask)

	signalMask, err := r.Bits(lenSignalMask)
	if err != nil {
		return nil, nil, err
	}
	h.SignalMask = uint32(signalMask)
	h.Signals = bitsToSlots(signalMask, lenSignalMask)

	cellMaskBits := len(h.Satellites) * len(h.Signals)
	if cellMaskBits > MaxCellMaskBits {
		return nil, nil, fmt.Errorf("msmheader: cell mask is %d bits, expected at most %d", cellMaskBits, MaxCellMaskBits)
	}
	if cellMaskBits == 0 {
		h.Cells = [][]bool{}
		return h, r, nil
	}

	cellMask, err := r.Bits(uint(cellMaskBits))
	if err != nil {
		return nil, nil, err
	}
	h.CellMask = cellMask
	h.Cells = cellsFromMask(cellMask, len(h.Satellites), len(h.Signals))
	h.NumSignalCells = 0
	for _, row := range h.Cells {
		for _, set := range row {
			if set {
				h.NumSignalCells++
			}
		}
	}

	return h, r, nil
}
