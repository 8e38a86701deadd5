// Package logrus adapts a logrus entry to the application [log.Logger].
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

type logger struct {
	*logrus.Entry
}

// NewLogrus returns a new log.Logger for a logrus implementation.
func NewLogrus(l *logrus.Entry) log.Logger {
	return logger{Entry: l}
}

func (l logger) WithValues(kv log.Kv) log.Logger {
	newLogger := l.Entry.WithFields(kv)
	return NewLogrus(newLogger)
}
