// Package log is the agent's process-wide logger: a thin, leveled wrapper
// around logrus with a single-line timestamp formatter and optional
// lumberjack-backed file rotation.
package log

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	level = INFO
	inner = logrus.New()
)

type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	b.WriteString(entry.Time.Format("2006/01/02 15:04:05"))
	b.WriteString(fmt.Sprintf(" |%.4s| ", entry.Level))
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func init() {
	inner.SetOutput(os.Stdout)
	inner.SetLevel(logrus.DebugLevel)
	inner.SetFormatter(&lineFormatter{})
}

// SetLevel changes the minimum level that is actually emitted.
func SetLevel(l LogLevel) {
	level = l
}

// Level returns the currently configured minimum level.
func Level() LogLevel {
	return level
}

// SetOutputFile redirects logging to a rotated file instead of stdout.
func SetOutputFile(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	if path == "" {
		return
	}
	inner.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	})
}

func Debugln(format string, v ...any) {
	if level > DEBUG {
		return
	}
	inner.Debugln(fmt.Sprintf(format, v...))
}

func Infoln(format string, v ...any) {
	if level > INFO {
		return
	}
	inner.Infoln(fmt.Sprintf(format, v...))
}

func Warnln(format string, v ...any) {
	if level > WARNING {
		return
	}
	inner.Warnln(fmt.Sprintf(format, v...))
}

func Errorln(format string, v ...any) {
	if level > ERROR {
		return
	}
	inner.Errorln(fmt.Sprintf(format, v...))
}

func Fatalln(format string, v ...any) {
	inner.Fatalf(format, v...)
}
