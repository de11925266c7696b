// Package convoylog builds the server's base zerolog.Logger and
// offers the same WithField/WithFields/component-sub-logger chaining
// shape the teacher's hand-rolled pkg/logger exposed, backed by
// rs/zerolog instead of a bespoke writer — the ambient-stack logging
// library the rest of the retrieved pack reaches for (see
// piwi3910-openfroyo).
package convoylog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the base logger.
type Options struct {
	Level    string // "debug", "info", "warn", "error"
	Writer   io.Writer
	NoColor  bool
	JSON     bool
}

// New builds a base zerolog.Logger from opts. With JSON false, output
// is the human-readable console writer; with JSON true, output is
// newline-delimited JSON suitable for log aggregation.
func New(opts Options) zerolog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var out io.Writer = writer
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339, NoColor: opts.NoColor}
	}

	level := parseLevel(opts.Level)
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a child logger tagged with a "component" field —
// the zerolog equivalent of the teacher's Logger.WithPrefix, used to
// build each subsystem's own sub-logger (tracking, vision, hub, ...).
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// WithFields returns a child logger carrying every key/value in
// fields — the zerolog equivalent of the teacher's Logger.WithFields.
func WithFields(base zerolog.Logger, fields map[string]any) zerolog.Logger {
	ctx := base.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
