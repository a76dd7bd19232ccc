// Package logging builds the logrus loggers used by the transports.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLevel names the environment variable that overrides the configured level.
const EnvLevel = "IMAGE_MCP_LOG_LEVEL"

// New returns a logger writing to out at the given level. Format "json"
// selects structured JSON output; anything else uses the text formatter with
// full timestamps. Unknown levels fall back to info.
func New(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger
}

// ParseLevel maps debug, info, warn and error to logrus levels.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// LevelFromEnv returns the EnvLevel value when set, else fallback.
func LevelFromEnv(fallback string) string {
	if v := os.Getenv(EnvLevel); v != "" {
		return v
	}
	return fallback
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
