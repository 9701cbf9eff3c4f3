// Package logging builds the zerolog loggers used by the commands and the
// language server.
package logging

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	// Debug lowers the level from info to debug.
	Debug bool
	// Console writes human readable lines instead of JSON.
	Console bool
	// TimeFormat overrides the millisecond UTC default.
	TimeFormat string
	// Fields are attached to every event.
	Fields map[string]string
}

// New returns a logger writing to w with the time and caller hooks installed.
func New(w io.Writer, opts Options) zerolog.Logger {
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}
	}

	lctx := zerolog.New(w).With()
	for k, v := range opts.Fields {
		lctx = lctx.Str(k, v)
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	return lctx.Logger().
		Level(level).
		Hook(TimeHook{Format: opts.TimeFormat}).
		Hook(CallerHook{})
}

func callerSkipFrameCount(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() && field.CanInt() {
		return int(field.Int())
	}
	return 0
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if t.Format == "" {
		e.Str("time", time.Now().UTC().Format("2006-01-02T15:04:05.0000Z"))
		return
	}
	e.Str("time", time.Now().Format(t.Format))
}

// CallerHook adds a caller field formatted as pkg:file:line.
type CallerHook struct{}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(callerSkipFrameCount(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := PackageAndFunc(fn.Name())
	e.Str("caller", FormatCaller(pkg, file, line))
}

// PackageAndFunc splits a runtime function name such as
// github.com/a/b.(*T).Method into its package and function parts.
func PackageAndFunc(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int) string {
	return fmt.Sprintf("%s:%s:%d", pkg, fileName(path), line)
}

func fileName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
