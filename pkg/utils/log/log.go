// Package log implements nestrelay's leveled logger. Each level is a
// package-level value (I, E, W, T, D, F) so call sites read as
// `log.I.F("...", args...)` or `log.T.C(func() string { ... })` for trace
// lines whose message is expensive to build and should only be formatted
// when tracing is actually enabled.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// Level orders the severities from least to most verbose when filtering.
type Level int32

const (
	Off Level = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

var names = map[string]Level{
	"fatal": Fatal, "error": Error, "warn": Warn,
	"info": Info, "debug": Debug, "trace": Trace,
}

var current atomic.Int32

func init() { current.Store(int32(Info)) }

// SetLogLevel sets the minimum level that will be printed, by name
// ("fatal".."trace"); unrecognised names are ignored.
func SetLogLevel(s string) {
	if lvl, ok := names[strings.ToLower(strings.TrimSpace(s))]; ok {
		current.Store(int32(lvl))
	}
}

// GetLogLevel returns the currently configured level.
func GetLogLevel() Level { return Level(current.Load()) }

// Logger is a single severity's sink.
type Logger struct {
	level  Level
	prefix string
	color  *color.Color
}

func (l *Logger) enabled() bool { return l.level <= GetLogLevel() }

func (l *Logger) write(s string) {
	if !l.enabled() {
		return
	}
	ts := time.Now().UTC().Format("15:04:05.000")
	_, _ = l.color.Fprintf(
		os.Stderr, "%s %s %s\n", ts, l.prefix, s,
	)
	if l.level == Fatal {
		os.Exit(1)
	}
}

// F formats and logs a message, printf-style.
func (l *Logger) F(format string, args ...any) { l.write(fmt.Sprintf(format, args...)) }

// Ln logs its arguments space-joined, fmt.Sprintln style (without the
// trailing newline, which write adds).
func (l *Logger) Ln(args ...any) { l.write(strings.TrimRight(fmt.Sprintln(args...), "\n")) }

// C logs the string returned by fn, but only calls fn when this level is
// actually enabled — for log lines whose construction isn't free.
func (l *Logger) C(fn func() string) {
	if l.enabled() {
		l.write(fn())
	}
}

var (
	F = &Logger{level: Fatal, prefix: "FTL", color: color.New(color.FgHiRed, color.Bold)}
	E = &Logger{level: Error, prefix: "ERR", color: color.New(color.FgRed)}
	W = &Logger{level: Warn, prefix: "WRN", color: color.New(color.FgYellow)}
	I = &Logger{level: Info, prefix: "INF", color: color.New(color.FgGreen)}
	D = &Logger{level: Debug, prefix: "DBG", color: color.New(color.FgCyan)}
	T = &Logger{level: Trace, prefix: "TRC", color: color.New(color.FgWhite)}
)
