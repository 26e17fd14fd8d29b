// Package logging builds the zerolog loggers used across the node.
package logging

import (
	"io"
	"os"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

// New returns a timestamped logger writing to w at level. A nil w means
// stderr; an empty level means info.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(level); err != nil {
			return zerolog.Nop(), err
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Console is New with human readable output for the command line.
func Console(level string) (zerolog.Logger, error) {
	return New(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// SetCircuitLogger routes gnark's compile and solver logs into log. They are
// only useful when debugging circuits, so anything above debug disables them.
func SetCircuitLogger(log zerolog.Logger) {
	if log.GetLevel() > zerolog.DebugLevel {
		logger.Disable()
		return
	}
	logger.Set(log.With().Str("module", "gnark").Logger())
}
