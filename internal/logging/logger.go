// Package logging builds the zerolog logger shared by the client packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger at the given level. DEV environments get the
// human-readable console writer on stderr; everything else logs JSON.
func New(level, env string) zerolog.Logger {
	return NewWithWriter(level, env, os.Stderr)
}

func NewWithWriter(level, env string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// SetGlobal installs l as the package-level zerolog logger.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}

// OrGlobal returns l when set, otherwise the global logger.
func OrGlobal(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return log.Logger
	}
	return *l
}
