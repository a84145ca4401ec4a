package internal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLogLevel maps LOG_LEVEL values (ERROR, WARN, INFO, DEBUG, TRACE) to
// zerolog levels. Empty means INFO.
func ParseLogLevel(s string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "WARN", "WARNING":
		return zerolog.WarnLevel, nil
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "TRACE":
		return zerolog.TraceLevel, nil
	case "OFF", "DISABLED":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds a logger writing JSON lines, or human readable lines when
// format is "console"
func NewLogger(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetupLogging replaces the global logger used by every package
func SetupLogging(w io.Writer, level, format string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = NewLogger(w, lvl, format)
	return nil
}
