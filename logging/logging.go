// Package logging configures logrus for the organizer and captures log entries
// as plain records for the presentation layer.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configures the logger.
type Options struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	File   string // empty: stderr
	Buffer int    // records kept by the sink, 0 uses DefaultBuffer
}

// New creates a logrus logger writing to stderr or a file (never stdout,
// which carries MCP stdio) and a Sink receiving every entry.
func New(options Options) (*logrus.Logger, *Sink) {
	logger := logrus.New()
	logger.SetReportCaller(true)

	level, err := logrus.ParseLevel(strings.ToLower(options.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(options.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	logger.SetOutput(openOutput(options.File))

	sink := NewSink(options.Buffer)
	logger.AddHook(sink)
	return logger, sink
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func openOutput(logFile string) io.Writer {
	if logFile == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return f
}
