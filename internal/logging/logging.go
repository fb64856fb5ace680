// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger: human-readable console output in
// development, JSON in production.
func Setup(env string) zerolog.Logger {
	var out io.Writer = os.Stdout
	level := zerolog.DebugLevel

	if env == "production" {
		level = zerolog.InfoLevel
	} else {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	return log.Logger
}

// Component returns a child logger tagged with the component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
