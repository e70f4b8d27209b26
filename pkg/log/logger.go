package log

import (
	"github.com/sirupsen/logrus"
)

// Logger wraps the logrus package so that callers depend on a small interface rather than on
// logrus itself. Loggers are cheap to derive: every With* method returns a new instance and
// leaves the receiver untouched.
type Logger interface {
	// SetOptions sets the given options to the instance.
	SetOptions(opts ...Option)

	// WithField adds a single field to the Logger and returns a new instance.
	WithField(key string, value any) Logger

	// WithError adds an error as single field to the Logger.
	WithError(err error) Logger

	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	Trace(args ...any)
	Error(args ...any)
}

type logger struct {
	*logrus.Entry
}

// New returns a new Logger instance.
func New(opts ...Option) Logger {
	logger := &logger{
		Entry: logrus.NewEntry(logrus.New()),
	}
	logger.SetOptions(opts...)

	return logger
}

// SetOptions implements the Logger interface method.
func (logger *logger) SetOptions(opts ...Option) {
	for _, opt := range opts {
		opt(logger)
	}
}

// WithField implements the Logger interface method.
func (logger *logger) WithField(key string, value any) Logger {
	return logger.setEntry(logger.Entry.WithField(key, value))
}

// WithError implements the Logger interface method.
func (logger *logger) WithError(err error) Logger {
	return logger.setEntry(logger.Entry.WithError(err))
}

func (logger *logger) Trace(args ...any) { logger.Entry.Trace(args...) }
func (logger *logger) Error(args ...any) { logger.Entry.Error(args...) }

func (logger *logger) Tracef(format string, args ...any) { logger.Entry.Tracef(format, args...) }
func (logger *logger) Debugf(format string, args ...any) { logger.Entry.Debugf(format, args...) }
func (logger *logger) Infof(format string, args ...any)  { logger.Entry.Infof(format, args...) }
func (logger *logger) Warnf(format string, args ...any)  { logger.Entry.Warnf(format, args...) }
func (logger *logger) Errorf(format string, args ...any) { logger.Entry.Errorf(format, args...) }

func (logger *logger) setEntry(entry *logrus.Entry) *logger {
	newLogger := *logger
	newLogger.Entry = entry

	return &newLogger
}
