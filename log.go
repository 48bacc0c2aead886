package stackalloc

import (
	"github.com/rs/zerolog"
)

// Logger receives structured diagnostic events from an Allocator. The
// zero value of Logger is not usable; use NewLogger or NoopLogger.
type Logger interface {
	Debug(event string, fields map[string]any)
	Warn(event string, fields map[string]any)
}

// NewLogger adapts a zerolog.Logger into a Logger.
func NewLogger(l zerolog.Logger) Logger {
	return zerologAdapter{l: l}
}

// NoopLogger discards every event. It is the default used by NewAllocator
// when no Logger is supplied.
func NoopLogger() Logger { return noopLogger{} }

type zerologAdapter struct {
	l zerolog.Logger
}

func (z zerologAdapter) Debug(event string, fields map[string]any) {
	ev := z.l.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

func (z zerologAdapter) Warn(event string, fields map[string]any) {
	ev := z.l.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Warn(string, map[string]any)  {}
