// Package logx is the small leveled-logger surface the checkpoint engine
// logs warnings through (oversized files, skipped symlinks, unreadable
// directories, dangling GC pointers, failed compensations). It wraps
// zerolog rather than tying the public API to a concrete library.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the leveled-logging surface the engine and CLI depend on.
// Consumers may pass their own zerolog.Logger via Wrap, or embed any type
// satisfying this interface.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

type zlog struct {
	l zerolog.Logger
}

// New returns a logger writing zerolog's JSON lines to w (os.Stderr when
// w is nil), at the given minimum level.
func New(w io.Writer, level zerolog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zlog{l: l}
}

// Wrap adapts an existing zerolog.Logger (e.g. one an embedding
// application already configured) to the Logger interface.
func Wrap(l zerolog.Logger) Logger {
	return &zlog{l: l}
}

// Nop returns a Logger that discards everything, for callers that do not
// want log output (e.g. unit tests).
func Nop() Logger {
	return &zlog{l: zerolog.Nop()}
}

func (z *zlog) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z *zlog) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }
func (z *zlog) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z *zlog) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
