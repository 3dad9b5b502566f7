// Package streamlog provides a daily-rotating io.Writer for a raw RTCM
// byte stream, so a capture can be replayed later or handed to another
// process for independent processing. It writes through a switchwriter
// set once to a dailylogger; a cron schedule pauses that logger at 23:59,
// resumes it at 00:01 and then pushes each earlier day's file into a
// data.ready subdirectory.
package streamlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goblimey/go-tools/dailylogger"
	"github.com/goblimey/go-tools/switchwriter"
	"github.com/robfig/cron/v3"
)

// Clock abstracts time.Now so day-boundary behaviour can be driven in
// tests without sleeping until midnight.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

const subdirectoryForOldLogs = "data.ready"

// Writer writes to a day-stamped file under a log directory, rotating at
// UTC midnight and moving each day's finished file into a "data.ready"
// subdirectory once the next day's file is open. It is safe for
// concurrent use: the underlying switchwriter.Writer serializes Write
// against the cron-triggered day rollover.
type Writer struct {
	logger   *slog.Logger
	clock    Clock
	dir      string
	daily    *dailylogger.Writer
	switcher *switchwriter.Writer
	cronjob  *cron.Cron
}

// New creates a Writer logging into dir, creating it if necessary, and
// starts the cron schedule that disables logging in the minute either
// side of midnight and pushes the previous day's file once the new one
// opens. A nil logger falls back to slog.Default().
func New(dir string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	daily := dailylogger.New(dir, "data.", ".rtcm3")
	switcher := switchwriter.New()
	switcher.SwitchTo(daily)

	w := &Writer{
		logger:   logger,
		clock:    systemClock{},
		dir:      dir,
		daily:    daily,
		switcher: switcher,
	}

	c := cron.New()
	if _, err := c.AddFunc("59 23 * * *", w.disableLogging); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc("1 0 * * *", w.startNewDay); err != nil {
		return nil, err
	}
	c.Start()
	w.cronjob = c

	return w, nil
}

// Write writes buffer to today's log file via the switchwriter, so a
// rollover triggered concurrently by the cron schedule can't interleave
// with a caller's write.
func (w *Writer) Write(buffer []byte) (int, error) {
	return w.switcher.Write(buffer)
}

// Close stops the cron schedule. It does not close the current log file:
// the next rollover (or process exit) does that.
func (w *Writer) Close() error {
	if w.cronjob != nil {
		w.cronjob.Stop()
	}
	return nil
}

func (w *Writer) disableLogging() {
	w.logger.Info("streamlog: suspending logging around the day boundary")
	w.daily.DisableLogging()
}

func (w *Writer) startNewDay() {
	w.daily.EnableLogging()
	go w.pushOldLogs()
}

// pushOldLogs moves every file in the log directory except today's into
// the data.ready subdirectory, for a downstream process to pick up.
func (w *Writer) pushOldLogs() {
	today := todaysLogFilename(w.clock.Now())
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("streamlog: cannot read log directory", "dir", w.dir, "error", err)
		return
	}

	dest := filepath.Join(w.dir, subdirectoryForOldLogs)
	for _, e := range entries {
		if e.IsDir() || e.Name() == today {
			continue
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			w.logger.Error("streamlog: cannot create data.ready directory", "dir", dest, "error", err)
			return
		}
		src := filepath.Join(w.dir, e.Name())
		target := filepath.Join(dest, e.Name())
		if err := os.Rename(src, target); err != nil {
			w.logger.Warn("streamlog: failed to push old log file", "file", e.Name(), "error", err)
		}
	}
}

// todaysLogFilename returns the name dailylogger.New("data.", ".rtcm3")
// gives the file for now's UTC date.
func todaysLogFilename(now time.Time) string {
	u := now.In(time.UTC)
	return "data." + u.Format("2006-01-02") + ".rtcm3"
}
