// Package logging configures the logrus logger shared by the jobform
// commands.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Configure sets level, format and output on logger. Level accepts any
// logrus level name; format is "text" or "json". A nil out keeps the
// logger's current output.
func Configure(logger *logrus.Logger, level, format string, out io.Writer) error {
	if logger == nil {
		return fmt.Errorf("logging: logger is nil")
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if !validLogFormats[format] {
		return fmt.Errorf("logging: unknown format %q, expected text or json", format)
	}

	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if out != nil {
		logger.SetOutput(out)
	}
	return nil
}

// New returns a configured logger writing to out.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if err := Configure(logger, level, format, out); err != nil {
		return nil, err
	}
	return logger, nil
}

// NullLogger discards everything.
func NullLogger() *logrus.Logger {
	return &logrus.Logger{
		Out:       io.Discard,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.PanicLevel,
	}
}
