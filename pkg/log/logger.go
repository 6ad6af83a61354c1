package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const timeFormat = "15:04:05.000"

var Logger zerolog.Logger

func init() {
	Configure(os.Stderr, zerolog.InfoLevel)
}

// Configure rebuilds the package logger on top of a console writer.
func Configure(out io.Writer, level zerolog.Level) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
	}

	Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Set global logger
	log.Logger = Logger
}

// SetLevel parses a level name (trace, debug, info, warn, error) and applies it.
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	Logger = Logger.Level(level)
	log.Logger = Logger
	return nil
}

func Trace() *zerolog.Event {
	return Logger.Trace()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal logs at fatal level; the process exits after Msg.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
