// README: Root zerolog logger shared by the API process and the CLI.
package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger tagged with service. An unknown level falls back to info.
func NewLogger(service, level string) zerolog.Logger {
	return newLogger(os.Stdout, service, level)
}

// NewConsoleLogger writes human-readable lines to stderr for interactive tools.
func NewConsoleLogger(service, level string) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, service, level)
}

func newLogger(w io.Writer, service, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()
}
