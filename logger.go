package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Printf(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})
}

type logger struct {
	l *logrus.Logger
}

// make sure it implements Logger
var _ Logger = (*logger)(nil)

func NewLogger(level logrus.Level) Logger {
	return newLoggerTo(os.Stderr, level)
}

func newLoggerTo(w io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logger{l: l}
}

// Printf always prints, regardless of level; the print sender relies on it.
func (l *logger) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(l.l.Out, msg)
}

func (l *logger) Debug(format string, v ...interface{}) {
	l.l.Debugf(format, v...)
}

func (l *logger) Info(format string, v ...interface{}) {
	l.l.Infof(format, v...)
}

func (l *logger) Warn(format string, v ...interface{}) {
	l.l.Warnf(format, v...)
}

func (l *logger) Error(format string, v ...interface{}) {
	l.l.Errorf(format, v...)
}

func (l *logger) Fatal(format string, v ...interface{}) {
	l.l.Fatalf(format, v...)
}
