package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger. Dev gets the console writer, everything else
// writes JSON lines to stdout. Unknown levels fall back to info.
func New(env, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(env, "dev") || strings.EqualFold(env, "development") {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return NewWithWriter(out, level)
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
