// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. Debug mode writes human-readable
// console output to stderr at debug level; otherwise JSON at info level.
func Setup(debug bool) zerolog.Logger {
	return SetupWriter(os.Stderr, debug)
}

// SetupWriter is Setup with an explicit destination
func SetupWriter(w io.Writer, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	out := w
	if debug {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "archivesearch").Logger()
	log.Logger = logger
	return logger
}
