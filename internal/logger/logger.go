// Package logger is the structured logger used by the engine and the CLI.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	// Writer defaults to stderr so stdout stays free for reports.
	Writer io.Writer
	// Fields are attached to every entry.
	Fields map[string]any
}

// Logger wraps zerolog with the handful of calls the runner needs. A nil
// *Logger discards everything.
type Logger struct {
	base zerolog.Logger
}

// LevelFor maps the CLI verbosity switches to a level name. Verbose wins.
func LevelFor(verbose, quiet bool) string {
	switch {
	case verbose:
		return zerolog.DebugLevel.String()
	case quiet:
		return zerolog.ErrorLevel.String()
	}
	return zerolog.InfoLevel.String()
}

// New creates a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = os.Stderr
	if opts.Writer != nil {
		output = opts.Writer
	}
	if opts.HumanReadable {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	for key, value := range opts.Fields {
		ctx = ctx.Interface(key, value)
	}
	return &Logger{base: ctx.Logger()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// WithFields returns a derived logger that always writes the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.base.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}
	return &Logger{base: ctx.Logger()}
}

// ForResource scopes the logger to one resource of one recipe.
func (l *Logger) ForResource(recipe, id, kind string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With().Str("recipe", recipe).Str("resource", id).Str("type", kind).Logger()}
}

// Info writes msg at info level.
func (l *Logger) Info(msg string) { l.emit(zerolog.InfoLevel, nil, msg) }

// Debug writes msg at debug level.
func (l *Logger) Debug(msg string) { l.emit(zerolog.DebugLevel, nil, msg) }

// Warn writes msg at warn level.
func (l *Logger) Warn(msg string) { l.emit(zerolog.WarnLevel, nil, msg) }

// Error writes msg at error level with err attached.
func (l *Logger) Error(err error, msg string) { l.emit(zerolog.ErrorLevel, err, msg) }

func (l *Logger) emit(level zerolog.Level, err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.WithLevel(level)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
