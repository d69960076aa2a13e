package logger

import (
	"fmt"
	"io"
	"os"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Logger wraps the cometbft logfmt logger with a debug flag. With debug off
// everything but Fatalf is discarded so the dashboard owns the terminal.
type Logger struct {
	debug bool
	tm    cmtlog.Logger
}

// New creates a logger writing to stderr
func New(debug bool) *Logger {
	return NewWithWriter(debug, os.Stderr)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(debug bool, w io.Writer) *Logger {
	if !debug {
		w = io.Discard
	}
	base := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(w))
	return &Logger{
		debug: debug,
		tm:    cmtlog.NewFilter(base, cmtlog.AllowDebug()),
	}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{tm: cmtlog.NewNopLogger()}
}

// With returns a child logger that adds keyvals to every line.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{debug: l.debug, tm: l.tm.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.tm.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.tm.Info(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.tm.Error(msg, keyvals...) }

// Printf logs if debug is enabled
func (l *Logger) Printf(format string, v ...interface{}) {
	if l.debug {
		l.tm.Info(fmt.Sprintf(format, v...))
	}
}

// Fatalf always logs (fatal errors)
func (l *Logger) Fatalf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.tm.Error(msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
