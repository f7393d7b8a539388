package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging handle threaded into every component. Verbosity is
// configured once at process start; components never reach for a global.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// New builds a Logger at the given level ("debug", "info", "warn", "error").
// An unparseable level falls back to info.
func New(level string) Logger {
	l := logrus.New()
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(parsed)
	}
	return &logrusLogger{
		logger: l,
		entry:  logrus.NewEntry(l),
	}
}

// NewNop returns a Logger that discards everything. Intended for tests.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{
		logger: l,
		entry:  logrus.NewEntry(l),
	}
}

func (l *logrusLogger) Debug(msg string) {
	l.entry.Debug(msg)
}

func (l *logrusLogger) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logrusLogger) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logrusLogger) Error(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// DebugEnabled reports whether the logger emits debug output. Callers use
// this to decide whether to include stack detail in unexpected errors.
func DebugEnabled(l Logger) bool {
	ll, ok := l.(*logrusLogger)
	return ok && ll.logger.IsLevelEnabled(logrus.DebugLevel)
}
