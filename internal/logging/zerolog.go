package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// NewZerolog returns a zerolog logger writing to w at level, for the
// database and metrics managers.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
