package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process-wide logger. Debug mode switches to the
// human-readable console writer and enables debug-level events.
func Setup(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if debug {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}})
	}

	return logger
}
