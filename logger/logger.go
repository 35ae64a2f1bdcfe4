// Package logger is the process wide logrus logger of the CLI, with the
// colored helpers used for command output.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	logger *Logger
	once   sync.Once
)

// Logger is a logrus logger plus the palette of CLI output
type Logger struct {
	*logrus.Logger
	success *color.Color
	failure *color.Color
	folder  *color.Color
	heading *color.Color
}

// New returns the shared logger, created on first use. Logs go to
// stderr so command output on stdout stays parseable.
func New() *Logger {
	once.Do(func() {
		logger = &Logger{
			Logger:  logrus.New(),
			success: color.New(color.FgGreen),
			failure: color.New(color.FgRed),
			folder:  color.New(color.FgCyan),
			heading: color.New(color.Bold),
		}

		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006/01/02 15:04:05",
			FullTimestamp:   true,
			DisableSorting:  true,
		})
		logger.SetOutput(os.Stderr)

		logger.SetLevel(logrus.InfoLevel)
		if debugForced() {
			logger.SetLevel(logrus.DebugLevel)
			logger.Info("Debug logging enabled")
		}
	})
	return logger
}

func debugForced() bool {
	return os.Getenv("DEBUG") == "true"
}

// SetLevelName sets the level from its name ("debug", "info", ...).
// DEBUG=true always wins.
func (l *Logger) SetLevelName(name string) error {
	if debugForced() || name == "" {
		return nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	l.SetLevel(level)
	return nil
}

// Debug logs a printf-style debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Logf(logrus.DebugLevel, format, args...)
}

// Info logs a printf-style info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Logf(logrus.InfoLevel, format, args...)
}

// Error logs a printf-style error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Logf(logrus.ErrorLevel, format, args...)
}

// Success prints a green line to w
func (l *Logger) Success(w io.Writer, format string, args ...interface{}) {
	l.success.Fprintf(w, format+"\n", args...)
}

// Failure prints a red line to w
func (l *Logger) Failure(w io.Writer, format string, args ...interface{}) {
	l.failure.Fprintf(w, format+"\n", args...)
}

// Folder colors a folder name in listings
func (l *Logger) Folder(name string) string {
	return l.folder.Sprint(name)
}

// Bold highlights the echoed command line of batch output
func (l *Logger) Bold(s string) string {
	return l.heading.Sprint(s)
}
