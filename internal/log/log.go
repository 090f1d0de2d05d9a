package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the default slog logger with a text handler and the level
// parsed from the LOG_LEVEL-style string. Unknown levels fall back to INFO.
func Setup(level string) {
	var logLevel slog.Level

	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN", "WARNING":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))
}
