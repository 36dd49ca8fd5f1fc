package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Development gets a
// human-readable console writer; everything else logs JSON with unix
// timestamps. level overrides the environment default when it parses.
func Init(env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Millisecond

	defaultLevel := zerolog.InfoLevel
	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		defaultLevel = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(ParseLevel(level, defaultLevel))
}

// ParseLevel returns fallback for an empty or unknown level name.
func ParseLevel(level string, fallback zerolog.Level) zerolog.Level {
	if level == "" {
		return fallback
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fallback
	}
	return parsed
}
