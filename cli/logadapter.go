package cli

import (
	"fmt"
	"log/slog"

	"github.com/haligrid/orbit/core"
)

// slogLogger adapts the process-wide *slog.Logger to the printf-style
// core.Logger interface the scheduler, shutdown manager, and config
// loader expect, so commands that only hold a *slog.Logger can still
// hand it to core/config APIs without each call site rolling its own
// conversion.
type slogLogger struct {
	*slog.Logger
}

// NewCoreLogger wraps l so it satisfies core.Logger.
func NewCoreLogger(l *slog.Logger) core.Logger {
	return slogLogger{l}
}

func (l slogLogger) Criticalf(format string, args ...any) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}

func (l slogLogger) Debugf(format string, args ...any) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

func (l slogLogger) Errorf(format string, args ...any) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}

func (l slogLogger) Noticef(format string, args ...any) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

func (l slogLogger) Warningf(format string, args ...any) {
	l.Logger.Warn(fmt.Sprintf(format, args...))
}
