// Package logger configures the process-wide zerolog logger and hands out
// per-component child loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "localstore"

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string
	Output     string
	Rotation   bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Init initializes the global logger based on configuration. The returned
// closer releases the log file, if one was opened.
func Init(cfg *Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var (
		writer io.Writer
		closer io.Closer = nopCloser{}
	)

	switch {
	case cfg.Output == "" || cfg.Output == "stdout":
		writer = os.Stdout
	case cfg.Output == "stderr":
		writer = os.Stderr
	case cfg.Rotation:
		rotating := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}
		writer, closer = rotating, rotating
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writer, closer = file, file
	}

	if strings.EqualFold(cfg.Format, "text") {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	SetOutput(writer)
	return closer, nil
}

// SetOutput replaces the global logger's destination
func SetOutput(w io.Writer) {
	log.Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component name
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
