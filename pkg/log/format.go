package log

import (
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/sirupsen/logrus"
)

const (
	TextFormat = "text"
	JSONFormat = "json"
)

// NewFormatter returns the logrus formatter registered under the given name.
func NewFormatter(name string, disableColors bool) (logrus.Formatter, error) {
	switch name {
	case "", TextFormat:
		return &logrus.TextFormatter{
			DisableColors:    disableColors,
			FullTimestamp:    true,
			TimestampFormat:  "15:04:05.000",
			QuoteEmptyFields: true,
		}, nil
	case JSONFormat:
		return &logrus.JSONFormatter{}, nil
	}

	return nil, errors.Errorf("invalid log format %q, supported formats: %s, %s", name, TextFormat, JSONFormat)
}
