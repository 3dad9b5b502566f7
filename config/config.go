// Package config reads the JSON-tagged control file that drives a
// rtcm2rinex run: where to read RTCM bytes from, where to write the
// decoded output and logs, and how to behave when the input connection
// drops.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	serial "go.bug.st/serial"
)

// Config holds the values read from the control file plus the logger
// that WaitAndConnectToInput and its helpers write through. The logger
// isn't part of the JSON; Read sets it after unmarshalling.
type Config struct {
	// Filenames is a list of input files to try to open, first one wins -
	// a USB-reconnect can renumber the device file a serial GNSS receiver
	// shows up as.
	Filenames []string `json:"input"`

	// SerialDevice, if non-empty, is opened with the serial settings below
	// instead of one of Filenames.
	SerialDevice string `json:"serial_device"`
	SerialBaud   int    `json:"serial_baud"`

	// StopOnEOF says whether to stop processing on EOF. False for a live
	// serial/network source, true for a plain capture file.
	StopOnEOF bool `json:"stop_on_eof"`

	// RecordRawMessages says whether to also write a verbatim copy of the
	// incoming RTCM bytes to MessageLogDirectory.
	RecordRawMessages  bool   `json:"record_messages"`
	MessageLogDirectory string `json:"message_log_directory"`

	// ObservationFile and NavigationFile are where the RINEX emitter (out
	// of scope for this module) should write its output; the parser only
	// needs to know where the caller wants to send the decoded epochs, so
	// these are carried through unexamined.
	ObservationFile string `json:"observation_file"`
	NavigationFile  string `json:"navigation_file"`

	// DisplayMessages is read from the control file and shown by String;
	// cmd/rtcm2rinex does not act on it.
	DisplayMessages bool `json:"display_messages"`

	// LostInputConnectionTimeout and LostInputConnectionSleepTime, in
	// seconds, control the read deadline on an input file and how long
	// WaitAndConnectToInput sleeps between reconnect attempts.
	LostInputConnectionTimeout   uint `json:"timeout"`
	LostInputConnectionSleepTime uint `json:"sleeptime"`

	logger *slog.Logger
}

// ReadFile reads and parses a control file. A nil logger falls back to
// slog.Default().
func ReadFile(name string, logger *slog.Logger) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, logger)
}

// Read parses a control file from an already-open reader.
func Read(r io.Reader, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := io.ReadAll(r)
	if err != nil {
		logger.Error("config: cannot read control file", "error", err)
		return nil, err
	}
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		logger.Error("config: cannot parse control file", "error", err)
		return nil, err
	}
	c.logger = logger
	return &c, nil
}

// connectionFailureLogged suppresses repeat log lines for a run of
// connection failures.
var connectionFailureLogged = false

// WaitAndConnectToInput tries, potentially indefinitely, to connect to
// one of the configured input sources: the serial device if one is set,
// otherwise the first openable name in Filenames.
func (c *Config) WaitAndConnectToInput() io.Reader {
	sleepTime := time.Duration(c.LostInputConnectionSleepTime) * time.Second
	for {
		if r := c.openInput(); r != nil {
			c.logger.Info("config: connected to GNSS source")
			connectionFailureLogged = false
			return r
		}
		if !connectionFailureLogged {
			c.logger.Warn("config: failed to connect to GNSS source, retrying")
			connectionFailureLogged = true
		}
		time.Sleep(sleepTime)
	}
}

func (c *Config) openInput() io.Reader {
	if c.SerialDevice != "" {
		mode := &serial.Mode{BaudRate: c.SerialBaud}
		if mode.BaudRate == 0 {
			mode.BaudRate = 115200
		}
		port, err := serial.Open(c.SerialDevice, mode)
		if err != nil {
			return nil
		}
		c.logger.Info("config: opened serial device", "device", c.SerialDevice)
		return port
	}
	return c.openInputFile()
}

// openInputFile returns the first name in Filenames that can be opened for
// reading, with its read deadline set from LostInputConnectionTimeout, or
// nil if none can be opened.
func (c *Config) openInputFile() *os.File {
	deadline := time.Now().Add(time.Duration(c.LostInputConnectionTimeout) * time.Second)
	for _, name := range c.Filenames {
		f, err := os.Open(name)
		if err != nil {
			continue
		}
		c.logger.Info("config: opened input file", "name", name)
		if c.LostInputConnectionTimeout > 0 {
			f.SetReadDeadline(deadline)
		}
		return f
	}
	return nil
}

// String renders the config for a startup log line, omitting nothing
// sensitive since this module carries no caster credentials.
func (c *Config) String() string {
	return fmt.Sprintf("input=%v serial=%q obs=%q nav=%q record=%v display=%v",
		c.Filenames, c.SerialDevice, c.ObservationFile, c.NavigationFile, c.RecordRawMessages, c.DisplayMessages)
}
