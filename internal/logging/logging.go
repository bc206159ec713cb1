// Package logging builds the process logger. Every entry passes through a
// formatter that masks anything that looks like a card number.
package logging

import (
	"io"
	"regexp"

	"github.com/sirupsen/logrus"
)

var panPattern = regexp.MustCompile(`\b\d{12,19}\b`)

// MaskPANs replaces every 12-19 digit run with its masked form
func MaskPANs(s string) string {
	return panPattern.ReplaceAllStringFunc(s, func(pan string) string {
		return "**** **** **** " + pan[len(pan)-4:]
	})
}

// MaskingFormatter masks card numbers in the output of the wrapped formatter
type MaskingFormatter struct {
	logrus.Formatter
}

// Format renders the entry and masks card numbers in the result
func (f *MaskingFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	out, err := f.Formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return panPattern.ReplaceAllFunc(out, func(pan []byte) []byte {
		return []byte(MaskPANs(string(pan)))
	}), nil
}

// New creates a JSON logger writing to out at the given level.
// Unknown levels fall back to info.
func New(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&MaskingFormatter{Formatter: &logrus.JSONFormatter{}})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	return logger
}
