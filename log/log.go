package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// AttrFn adds a field to a zerolog context.
type AttrFn func(l zerolog.Context) zerolog.Context

// Scope sets the logger scope.
func Scope(s string) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Str("s", s)
	}
}

// Elapsed sets the elapsed time in milliseconds.
func Elapsed(dur time.Duration) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Int64("elapsed_ms", dur.Milliseconds())
	}
}

// Int sets an int field.
func Int(key string, val int) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Int(key, val)
	}
}

// Int64 sets an int64 field.
func Int64(key string, val int64) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Int64(key, val)
	}
}

// Str sets a string field.
func Str(key, val string) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Str(key, val)
	}
}

// Err sets the error field.
func Err(err error) AttrFn {
	return func(l zerolog.Context) zerolog.Context {
		return l.Err(err)
	}
}

// Logger is a thin wrapper around [zerolog.Logger].
type Logger zerolog.Logger

// InitGlobals configures the global zerolog settings and returns the fallback
// logger used when a context carries none.
func InitGlobals(level zerolog.Level, json, noColor bool) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var l zerolog.Logger
	if json {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.NoColor = noColor
			w.TimeFormat = time.DateTime
		}))
	}

	l = l.Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &l

	return &l
}

// New returns a logger derived from the global one with the given scope.
func New(scope string) *Logger {
	l := zerolog.Ctx(context.Background()).With().Str("s", scope).Logger()

	return (*Logger)(&l)
}

// Ctx returns the logger stored in ctx or the global fallback.
func Ctx(ctx context.Context) *Logger {
	return (*Logger)(zerolog.Ctx(ctx))
}

// WithAttrs returns a copy of ctx whose logger carries the attributes.
func WithAttrs(ctx context.Context, attrs ...AttrFn) context.Context {
	return Ctx(ctx).With(attrs...).WithContext(ctx)
}

func (l *Logger) unwrap() *zerolog.Logger {
	return (*zerolog.Logger)(l)
}

// With returns a child logger with the attributes.
func (l *Logger) With(attrs ...AttrFn) *Logger {
	c := l.unwrap().With()
	for _, attr := range attrs {
		c = attr(c)
	}

	child := c.Logger()

	return (*Logger)(&child)
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.unwrap().WithContext(ctx)
}

func (l *Logger) Trace(msg string) {
	l.unwrap().Trace().Msg(msg)
}

func (l *Logger) Debug(msg string) {
	l.unwrap().Debug().Msg(msg)
}

func (l *Logger) Debugf(msg string, args ...any) {
	l.unwrap().Debug().Msgf(msg, args...)
}

func (l *Logger) Info(msg string) {
	l.unwrap().Info().Msg(msg)
}

func (l *Logger) Infof(msg string, args ...any) {
	l.unwrap().Info().Msgf(msg, args...)
}

// InfoWith logs msg at info level with one-off attributes.
func (l *Logger) InfoWith(msg string, attrs ...AttrFn) {
	l.With(attrs...).Info(msg)
}

func (l *Logger) Warn(msg string) {
	l.unwrap().Warn().Msg(msg)
}

func (l *Logger) Warnf(msg string, args ...any) {
	l.unwrap().Warn().Msgf(msg, args...)
}

func (l *Logger) Error(err error, msg string) {
	l.unwrap().Error().Err(err).Msg(msg)
}

func (l *Logger) Errorf(err error, msg string, args ...any) {
	l.unwrap().Error().Err(err).Msgf(msg, args...)
}
