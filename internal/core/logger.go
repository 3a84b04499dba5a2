package core

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from the logging section. Console
// format is the default; "json" writes one object per line.
func NewLogger(cfg LoggingConfig, out io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	case "disabled", "off":
		logger = logger.Level(zerolog.Disabled)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}
