package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Component string
	Level     string // debug | info | warn | error
	Console   bool   // human readable output instead of JSON
	FilePath  string // optional rotated log file
}

var (
	once sync.Once
	base zerolog.Logger
)

// Init configures the global logger exactly once.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339

		var out io.Writer = os.Stdout
		if opts.Console {
			out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		if opts.FilePath != "" {
			_ = os.MkdirAll(filepath.Dir(opts.FilePath), 0o755)
			rot := &lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
			}
			out = io.MultiWriter(out, rot)
		}

		component := opts.Component
		if component == "" {
			component = "bookstore"
		}
		base = zerolog.New(out).Level(parseLevel(opts.Level)).With().
			Timestamp().
			Str("component", component).
			Logger()
		log.Logger = base
	})
	return base
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// New returns a child of the global logger for one subsystem.
func New(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithCtx stores l in ctx.
func WithCtx(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromCtx returns the request-scoped logger, falling back to the global one.
func FromCtx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
