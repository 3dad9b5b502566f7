// Package parser combines frame extraction, message dispatch, epoch
// assembly and time reconciliation into the single entry point an outer
// program drives: feed it bytes as they arrive, get back whatever
// observation epochs, ephemerides and station positions those bytes
// produced. A single tagged struct carrying a type and decoded payload
// stands in for what would otherwise be several return types, applied
// here to a streaming, push-based driver rather than a
// read-one-message-at-a-time loop.
package parser

import (
	"log/slog"

	"github.com/goblimey/rtcm2rinex/epoch"
	"github.com/goblimey/rtcm2rinex/ephemeris"
	"github.com/goblimey/rtcm2rinex/frame"
	"github.com/goblimey/rtcm2rinex/legacy"
	"github.com/goblimey/rtcm2rinex/msm"
	"github.com/goblimey/rtcm2rinex/msmheader"
	"github.com/goblimey/rtcm2rinex/rtcmdata"
	"github.com/goblimey/rtcm2rinex/stationpos"
)

// Kind tags the content a Result carries. Go has no sum type: one struct,
// a kind tag, and the fields for that kind populated, the rest left zero.
type Kind int

const (
	KindIncomplete Kind = iota
	KindUnknown
	KindEpochReady
	KindEphemerisGPS
	KindEphemerisGLONASS
	KindEphemerisGalileo
	KindStationPosition
)

// Result is what FeedByte/FeedBytes hand back for one dispatched frame.
// Exactly one of the pointer fields is non-nil, matching Kind.
type Result struct {
	Kind             Kind
	MessageType      int
	Epoch            *rtcmdata.Epoch
	GPSEphemeris     *rtcmdata.GPSEphemeris
	GLONASSEphemeris *rtcmdata.GLONASSEphemeris
	GalileoEphemeris *rtcmdata.GalileoEphemeris
	StationPosition  *rtcmdata.StationPosition
}

// maxGLONASSSlot bounds the GLONASS channel-frequency table; slots run
// 1-24 (PRN_GLONASS_START..START+23 in the reference decoder).
const maxGLONASSSlot = 24

// Parser assembles RTCM 3 frames fed in one byte at a time into decoded
// observation epochs and navigation messages. It owns one RTCM stream's
// worth of state: the current GPS time reference, the GLONASS
// channel-frequency table, per-decoder lock history and the epoch in
// progress. A Parser is not safe for concurrent use; the caller must
// serialize FeedByte/FeedBytes calls on a single goroutine.
type Parser struct {
	logger *slog.Logger

	extractor frame.Extractor
	assembler epoch.Assembler

	week int
	tow  int

	channelFreq []int

	gpsDecoder     legacy.GPSDecoder
	glonassDecoder legacy.GlonassDecoder
	msmDecoder     msm.Decoder
}

// New creates a Parser. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:      logger,
		channelFreq: make([]int, maxGLONASSSlot),
	}
}

// FeedByte pushes one byte from the stream into the parser and returns
// every result that byte's arrival produced. Most calls return nil: a
// frame typically completes on its last byte only, and even then it may
// yield nothing (a frame that fails to decode is dropped, and an
// observation message that does not complete an epoch returns nothing
// yet). A frame whose message type has no decoder yields a KindUnknown
// result carrying that type.
func (p *Parser) FeedByte(b byte) []Result {
	p.extractor.PushByte(b)
	var results []Result
	for {
		raw, ok := p.extractor.Next()
		if !ok {
			break
		}
		results = append(results, p.handleFrame(raw)...)
	}
	return results
}

// FeedBytes feeds a whole buffer through FeedByte and concatenates the
// results, for callers reading from a file or a full network buffer
// rather than a byte at a time.
func (p *Parser) FeedBytes(buf []byte) []Result {
	var results []Result
	for _, b := range buf {
		results = append(results, p.FeedByte(b)...)
	}
	return results
}

// Flush returns a result for whatever epoch is still in progress, if
// any. Callers use it at end of stream so a final epoch that never saw
// its sync flag clear isn't silently dropped.
func (p *Parser) Flush() []Result {
	completed := p.assembler.Flush()
	if completed == nil {
		return nil
	}
	return []Result{{Kind: KindEpochReady, Epoch: completed}}
}

func (p *Parser) handleFrame(raw []byte) []Result {
	messageType, err := frame.MessageType(raw)
	if err != nil {
		p.logger.Debug("parser: frame too short to read a message type", "error", err)
		return nil
	}
	payload := frame.Payload(raw)

	switch {
	case messageType >= 1001 && messageType <= 1004:
		return p.handleLegacyGPS(payload, messageType)
	case messageType >= 1009 && messageType <= 1012:
		return p.handleLegacyGlonass(payload, messageType)
	case messageType == 1019:
		return p.handleGPSEphemeris(payload, messageType)
	case messageType == 1020:
		return p.handleGlonassEphemeris(payload, messageType)
	case messageType == 1045:
		return p.handleGalileoEphemeris(payload, messageType)
	case messageType == 1005 || messageType == 1006:
		return p.handleStationPosition(payload, messageType)
	default:
		if _, _, err := msmheader.SubtypeOf(messageType); err == nil {
			return p.handleMSM(payload, messageType)
		}
		return []Result{{Kind: KindUnknown, MessageType: messageType}}
	}
}

func (p *Parser) handleLegacyGPS(payload []byte, messageType int) []Result {
	result, err := p.gpsDecoder.Decode(payload, messageType, &p.week, &p.tow)
	if err != nil {
		p.logger.Debug("parser: dropped legacy GPS frame", "messageType", messageType, "error", err)
		return nil
	}
	return p.feedEpoch(epoch.Observation{
		Week:             result.Week,
		TimeOfWeekMS:     result.TimeOfWeekMS,
		SyncFlag:         result.SyncFlag,
		Satellites:       result.Satellites,
		AmbiguityWarning: !result.HadAmbiguity,
	}, messageType)
}

func (p *Parser) handleLegacyGlonass(payload []byte, messageType int) []Result {
	result, err := p.glonassDecoder.Decode(payload, messageType, &p.week, &p.tow, p.channelFreq)
	if err != nil {
		p.logger.Debug("parser: dropped legacy GLONASS frame", "messageType", messageType, "error", err)
		return nil
	}
	return p.feedEpoch(epoch.Observation{
		Week:             result.Week,
		TimeOfWeekMS:     result.TimeOfWeekMS,
		SyncFlag:         result.SyncFlag,
		Satellites:       result.Satellites,
		AmbiguityWarning: !result.HadAmbiguity,
	}, messageType)
}

func (p *Parser) handleMSM(payload []byte, messageType int) []Result {
	result, err := p.msmDecoder.Decode(payload, &p.week, &p.tow, p.channelFreq)
	if err != nil {
		p.logger.Debug("parser: dropped MSM frame", "messageType", messageType, "error", err)
		return nil
	}
	noIntegerAmbiguity := result.Subtype == msmheader.MSM1 || result.Subtype == msmheader.MSM2 || result.Subtype == msmheader.MSM3
	return p.feedEpoch(epoch.Observation{
		Week:             result.Week,
		TimeOfWeekMS:     result.TimeOfWeekMS,
		SyncFlag:         result.SyncFlag,
		Satellites:       result.Satellites,
		AmbiguityWarning: noIntegerAmbiguity,
	}, messageType)
}

// feedEpoch hands one message's observations to the assembler and wraps
// a completed epoch, if one resulted, as a Result tagged with the type of
// the message that completed it.
func (p *Parser) feedEpoch(obs epoch.Observation, messageType int) []Result {
	completed := p.assembler.Feed(obs)
	if completed == nil {
		return nil
	}
	return []Result{{Kind: KindEpochReady, MessageType: messageType, Epoch: completed}}
}

func (p *Parser) handleGPSEphemeris(payload []byte, messageType int) []Result {
	eph, advancesClock, err := ephemeris.DecodeGPS(payload, p.week, p.tow)
	if err != nil {
		p.logger.Debug("parser: dropped GPS ephemeris frame", "error", err)
		return nil
	}
	if advancesClock {
		p.week = eph.GPSWeek
		p.tow = eph.TOE
	}
	return []Result{{Kind: KindEphemerisGPS, MessageType: messageType, GPSEphemeris: eph}}
}

func (p *Parser) handleGlonassEphemeris(payload []byte, messageType int) []Result {
	eph, err := ephemeris.DecodeGLONASS(payload, p.week, p.tow, p.channelFreq)
	if err != nil {
		p.logger.Debug("parser: dropped GLONASS ephemeris frame", "error", err)
		return nil
	}
	return []Result{{Kind: KindEphemerisGLONASS, MessageType: messageType, GLONASSEphemeris: eph}}
}

func (p *Parser) handleGalileoEphemeris(payload []byte, messageType int) []Result {
	eph, err := ephemeris.DecodeGalileo(payload)
	if err != nil {
		p.logger.Debug("parser: dropped Galileo ephemeris frame", "error", err)
		return nil
	}
	return []Result{{Kind: KindEphemerisGalileo, MessageType: messageType, GalileoEphemeris: eph}}
}

func (p *Parser) handleStationPosition(payload []byte, messageType int) []Result {
	pos, err := stationpos.Decode(payload, messageType)
	if err != nil {
		p.logger.Debug("parser: dropped station position frame", "error", err)
		return nil
	}
	return []Result{{Kind: KindStationPosition, MessageType: messageType, StationPosition: pos}}
}
