// Package logging provides the structured logging abstraction that
// cmd and pkg/api log through: a small Logger interface over logrus,
// so those call sites never import logrus directly and tests can
// substitute a no-op or capturing implementation. pkg/resolver and
// pkg/resolver/rediscache take a *logrus.Entry instead.
package logging

import "github.com/sirupsen/logrus"

// LogLevel mirrors logrus.Level without exposing logrus in this
// package's public API surface.
type LogLevel uint32

const (
	PanicLevel LogLevel = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

func (l LogLevel) toLogrus() logrus.Level {
	return logrus.Level(l)
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field, the terse form every call site in this repository
// uses: logger.WithFields(F("entity_id", id), F("hop", hops)).Info(...).
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger is the structured logging interface this repository's
// packages depend on. LogrusAdapter is the only production
// implementation.
type Logger interface {
	WithFields(fields ...Field) Logger
	WithError(err error) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	SetLevel(level LogLevel)
}

// LogrusAdapter implements Logger over a *logrus.Logger (or, once
// WithFields/WithError has been called, a *logrus.Entry).
type LogrusAdapter struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrusAdapter wraps an existing *logrus.Logger.
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{logger: logger}
}

func (l *LogrusAdapter) baseEntry() *logrus.Entry {
	if l.entry != nil {
		return l.entry
	}
	return logrus.NewEntry(l.logger)
}

func (l *LogrusAdapter) WithFields(fields ...Field) Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &LogrusAdapter{logger: l.logger, entry: l.baseEntry().WithFields(data)}
}

func (l *LogrusAdapter) WithError(err error) Logger {
	return &LogrusAdapter{logger: l.logger, entry: l.baseEntry().WithError(err)}
}

func (l *LogrusAdapter) Debug(args ...any) { l.baseEntry().Debug(args...) }
func (l *LogrusAdapter) Info(args ...any)  { l.baseEntry().Info(args...) }
func (l *LogrusAdapter) Warn(args ...any)  { l.baseEntry().Warn(args...) }
func (l *LogrusAdapter) Error(args ...any) { l.baseEntry().Error(args...) }
func (l *LogrusAdapter) Fatal(args ...any) { l.baseEntry().Fatal(args...) }

func (l *LogrusAdapter) Debugf(format string, args ...any) { l.baseEntry().Debugf(format, args...) }
func (l *LogrusAdapter) Infof(format string, args ...any)  { l.baseEntry().Infof(format, args...) }
func (l *LogrusAdapter) Warnf(format string, args ...any)  { l.baseEntry().Warnf(format, args...) }
func (l *LogrusAdapter) Errorf(format string, args ...any) { l.baseEntry().Errorf(format, args...) }

func (l *LogrusAdapter) SetLevel(level LogLevel) {
	l.logger.SetLevel(level.toLogrus())
}
