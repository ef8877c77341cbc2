// Package logging configures the process-wide zerolog logger: human-readable
// console output in development, raw JSON everywhere else.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Init builds the root logger. environment selects the output format,
// LOG_LEVEL overrides the per-environment default level.
func Init(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	dev := strings.EqualFold(environment, "development") || environment == ""

	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	var log zerolog.Logger
	if dev {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	} else {
		log = zerolog.New(os.Stdout)
	}

	return log.Level(level).With().Timestamp().Logger()
}
