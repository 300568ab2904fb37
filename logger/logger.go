package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	JSON = "json"
	Text = "text"
)

// New builds the process-wide logrus logger. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if format == Text {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	}
	return log
}

// Discard is used by tests that do not care about log output.
func Discard() *logrus.Logger {
	return NewWithOutput("panic", JSON, io.Discard)
}
