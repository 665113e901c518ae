// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Format selects the log encoding.
type Format int

// Formats.
const (
	JSON Format = iota
	Text
)

// Setup configures the standard logger. An unknown level falls back to info;
// a log file that cannot be opened falls back to stderr only.
// The returned closer releases the log file, if any.
func Setup(level, filePath string, format Format) io.Closer {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	switch format {
	case Text:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.SetOutput(os.Stderr)
	var closer io.Closer = nopCloser{}
	if filePath != "" {
		if file, ferr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); ferr == nil {
			logrus.SetOutput(io.MultiWriter(os.Stderr, file))
			closer = file
		} else {
			logrus.WithError(ferr).Error("Could not create file for logging")
		}
	}

	if err != nil {
		logrus.WithField("level", level).Warn("Unknown log level, using info")
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
