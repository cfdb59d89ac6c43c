package logging

import (
	"log/slog"
	"strings"
)

// LogFunc is a line-oriented log sink. Each call receives one complete
// record rendered as text, without a trailing newline.
type LogFunc func(line string)

// sinkWriter adapts a LogFunc to io.Writer. slog's text handler emits each
// record with a single Write call, so one Write is one line.
type sinkWriter struct {
	fn LogFunc
}

func (w sinkWriter) Write(p []byte) (int, error) {
	w.fn(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewFuncHandler returns a text slog.Handler that forwards every record to fn.
// Timestamps are dropped; the sink owner decides whether to add its own.
func NewFuncHandler(fn LogFunc, level Level) slog.Handler {
	return slog.NewTextHandler(sinkWriter{fn: fn}, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
}

// FromFunc returns a logger writing to fn at debug level and above.
// A nil fn yields Nop().
func FromFunc(fn LogFunc) *slog.Logger {
	if fn == nil {
		return Nop()
	}
	return slog.New(NewFuncHandler(fn, LevelDebug))
}
