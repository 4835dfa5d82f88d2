package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger
func SetupLogging(cfg LogConfig) {
	setupLogging(cfg, os.Stderr)
}

func setupLogging(cfg LogConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
