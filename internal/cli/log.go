// Package cli wires the cc99vis commands onto cobra.
//
// Every command shares one [CLI] value holding the logger and the lazily
// loaded configuration. Commands that produce files accept "-" for stdout so
// they compose with shell pipelines; status lines and logs go to stderr.
//
//	cc99vis compile prog.c -f svg -o -      # C source to SVG on stdout
//	cc99vis convert ast.json | jq .         # AST JSON to tree JSON
//	cc99vis serve --addr :5001              # HTTP API
//	cc99vis mcp                             # MCP over stdio
//
// Long-running steps are logged as stages with charmbracelet/log; pass -v
// to see when each one starts.
package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a charm logger writing to w at level, with timestamps
// like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stage times one step of a command and logs it as a structured record.
type stage struct {
	logger *log.Logger
	name   string
	start  time.Time
}

// startStage logs the start of name at debug level and starts its clock.
func startStage(l *log.Logger, name string) *stage {
	l.Debug("start", "stage", name)
	return &stage{logger: l, name: name, start: time.Now()}
}

// elapsed is the time since the stage started, rounded to milliseconds.
func (s *stage) elapsed() time.Duration {
	return time.Since(s.start).Round(time.Millisecond)
}

// done logs msg at info level with the stage name, keyvals and the elapsed
// time.
func (s *stage) done(msg string, keyvals ...any) {
	kv := append([]any{"stage", s.name}, keyvals...)
	s.logger.Info(msg, append(kv, "elapsed", s.elapsed())...)
}

// fail logs err at error level unless it is a cancellation.
func (s *stage) fail(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error("failed", "stage", s.name, "err", err, "elapsed", s.elapsed())
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for the command's helpers.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
