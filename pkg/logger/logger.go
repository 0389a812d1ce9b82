// Package logger builds the zerolog root logger every component logger
// derives from.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level  string // any zerolog level name; empty means info
	Pretty bool   // human-readable console output instead of JSON
}

// New creates the root logger. Unknown level names are rejected so a typo in
// LOG_LEVEL fails loudly instead of silently logging at info.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "folio").
		Logger(), nil
}

// SetGlobalLogger routes the zerolog package-level logger through l, so
// libraries logging via zerolog/log share the configured output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
