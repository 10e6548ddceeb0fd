// Package logx is the application-wide structured logger, a thin layer
// over logrus so callers never import the logging backend directly.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Level controls log verbosity.
type Level uint32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevel sets the global log level.
func SetLevel(level Level) {
	switch level {
	case LevelError:
		std.SetLevel(logrus.ErrorLevel)
	case LevelWarn:
		std.SetLevel(logrus.WarnLevel)
	case LevelDebug:
		std.SetLevel(logrus.DebugLevel)
	case LevelTrace:
		std.SetLevel(logrus.TraceLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
	}
}

// WithField returns an entry with a single structured field.
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}

// WithFields returns an entry with several structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// WithError returns an entry with the error attached.
func WithError(err error) *logrus.Entry {
	return std.WithError(err)
}

func Trace(args ...any) { std.Trace(args...) }
func Debug(args ...any) { std.Debug(args...) }
func Info(args ...any)  { std.Info(args...) }
func Warn(args ...any)  { std.Warn(args...) }
func Error(args ...any) { std.Error(args...) }
func Fatal(args ...any) { std.Fatal(args...) }

func Debugf(format string, args ...any) { std.Debugf(format, args...) }
func Infof(format string, args ...any)  { std.Infof(format, args...) }
func Warnf(format string, args ...any)  { std.Warnf(format, args...) }
func Errorf(format string, args ...any) { std.Errorf(format, args...) }
func Fatalf(format string, args ...any) { std.Fatalf(format, args...) }
