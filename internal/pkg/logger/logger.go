package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level string
	JSON  bool
}

var std = newLogger(Config{Level: "info"}, os.Stdout)

// Init replaces the package logger. JSON output is used in production so the
// log shipper can index fields; dev mode keeps the colourised text format.
func Init(cfg Config) {
	std = newLogger(cfg, os.Stdout)
}

// SetOutput redirects the package logger (tests use a buffer)
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func newLogger(cfg Config, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return l
}

// Get returns the package logger
func Get() *logrus.Logger {
	return std
}

// WithFields starts an entry with structured fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// WithError starts an entry carrying err
func WithError(err error) *logrus.Entry {
	return std.WithError(err)
}

func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
