// rtcm2rinex reads a stream of RTCM3 messages - from a capture file or a
// serial-connected GNSS receiver - and decodes it into observation epochs
// and navigation messages. It doesn't emit RINEX text itself; each decoded
// record is written as a structured log line on stderr for a downstream
// consumer, the way a GNSS base station operator would chain tools
// together. A JSON control file names where the bytes come from and
// whether to keep a raw copy of them in daily-rotated files.
//
// Usage:
//
//	rtcm2rinex -config rtcm2rinex.json
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/goblimey/rtcm2rinex/config"
	"github.com/goblimey/rtcm2rinex/parser"
	"github.com/goblimey/rtcm2rinex/streamlog"
)

func main() {
	var configFileName string
	flag.StringVar(&configFileName, "config", "", "JSON control file (required)")
	flag.Parse()

	if configFileName == "" {
		fmt.Fprintln(os.Stderr, "usage: rtcm2rinex -config <file>")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sessionID := uuid.New().String()
	logger = logger.With("session", sessionID)

	cfg, err := config.ReadFile(configFileName, logger)
	if err != nil {
		logger.Error("rtcm2rinex: cannot read control file", "file", configFileName, "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("rtcm2rinex: stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	input := cfg.WaitAndConnectToInput()

	var rawLog io.Writer
	if cfg.RecordRawMessages {
		w, err := streamlog.New(cfg.MessageLogDirectory, logger)
		if err != nil {
			return fmt.Errorf("opening raw message log: %w", err)
		}
		defer w.Close()
		rawLog = w
	}

	p := parser.New(logger)
	buf := make([]byte, 4096)
	for {
		n, readErr := input.Read(buf)
		if n > 0 {
			if rawLog != nil {
				rawLog.Write(buf[:n])
			}
			for _, result := range p.FeedBytes(buf[:n]) {
				report(logger, result)
			}
		}
		if readErr != nil {
			if readErr == io.EOF && cfg.StopOnEOF {
				break
			}
			if readErr == io.EOF {
				continue
			}
			return fmt.Errorf("reading input: %w", readErr)
		}
	}

	for _, result := range p.Flush() {
		report(logger, result)
	}
	return nil
}

func report(logger *slog.Logger, result parser.Result) {
	switch result.Kind {
	case parser.KindEpochReady:
		logger.Info("epoch decoded", "week", result.Epoch.Week, "towMS", result.Epoch.TimeOfWeekMS,
			"satellites", len(result.Epoch.Satellites), "ambiguityWarning", result.Epoch.AmbiguityWarning)
	case parser.KindEphemerisGPS:
		logger.Info("GPS ephemeris decoded", "satellite", result.GPSEphemeris.Satellite, "week", result.GPSEphemeris.GPSWeek)
	case parser.KindEphemerisGLONASS:
		logger.Info("GLONASS ephemeris decoded", "slot", result.GLONASSEphemeris.AlmanacNumber)
	case parser.KindEphemerisGalileo:
		logger.Info("Galileo ephemeris decoded", "satellite", result.GalileoEphemeris.Satellite)
	case parser.KindStationPosition:
		logger.Info("station position decoded", "station", result.StationPosition.StationID)
	case parser.KindUnknown:
		logger.Debug("unrecognized message type", "messageType", result.MessageType)
	}
}
