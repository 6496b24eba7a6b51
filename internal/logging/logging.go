package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulkyeet/triangle-scanner/internal/config"
)

// New returns a logger writing to stderr so stdout stays free for reports.
// An unknown level falls back to info.
func New(cfg config.Logging) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg config.Logging, w io.Writer) zerolog.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
