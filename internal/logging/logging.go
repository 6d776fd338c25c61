package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup construit le logger racine et le pose dans log.Logger.
// format: "console" ou "json"; vide = console en dev, json sinon.
func Setup(app string, development bool, format string) zerolog.Logger {
	return setup(os.Stdout, app, development, format)
}

func setup(out io.Writer, app string, development bool, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	console := development
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		console = true
	case "json":
		console = false
	}

	w := out
	if console {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	if development {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
