// Package logger configures the process-wide zerolog logger. Packages log
// through the helpers below instead of threading a logger value around.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global logger. Production emits one JSON line per entry
// on stdout; debug mode lowers the level and switches to a human-readable
// console writer.
func Init(serviceName string, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	var sink io.Writer = os.Stdout
	if debug {
		level = zerolog.DebugLevel
		sink = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			FormatLevel: func(i interface{}) string {
				s, ok := i.(string)
				if !ok || s == "" {
					return "????"
				}
				s = strings.ToUpper(s)
				if len(s) > 4 {
					s = s[:4]
				}
				return s
			},
		}
	}

	log.Logger = zerolog.New(sink).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Info().Str("level", level.String()).Msg("Logger initialized")
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
