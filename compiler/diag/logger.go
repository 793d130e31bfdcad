// Package diag carries the two diagnostic channels of the pipeline: the
// leveled debug logger and the compile-error log presented to the user.
package diag

import (
	"fmt"

	"tlog.app/go/tlog"
)

type (
	Level int

	// Logger is the debug channel. Records go through tlog; per-level
	// counters are kept regardless of the verbosity cut-off so the
	// pipeline can ask whether errors happened.
	Logger struct {
		tl  *tlog.Logger
		min Level

		count [levels]int
	}
)

const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal

	levels
)

var levelNames = [levels]string{"DEBUG", "INFO", "WARNING", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < 0 || l >= levels {
		return "UNKNOWN"
	}

	return levelNames[l]
}

func NewLogger(tl *tlog.Logger, min Level) *Logger {
	return &Logger{tl: tl, min: min}
}

func (l *Logger) Logf(lv Level, format string, args ...interface{}) {
	if lv < 0 || lv >= levels {
		lv = Error
	}

	l.count[lv]++

	if l.tl == nil || lv < l.min {
		return
	}

	l.tl.Printw(fmt.Sprintf(format, args...), "level", lv)
}

func (l *Logger) Count(lv Level) int {
	if lv < 0 || lv >= levels {
		return 0
	}

	return l.count[lv]
}
