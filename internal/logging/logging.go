package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a logger that writes human readable lines to console and JSON
// lines to <logDir>/<serviceName>.log. The caller owns the returned file.
func Setup(serviceName, logDir, level string, console io.Writer) (zerolog.Logger, *os.File, error) {
	if logDir == "" {
		logDir = ".log"
	}
	if console == nil {
		console = os.Stdout
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}
	logPath := filepath.Join(logDir, serviceName+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	out := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
		file,
	)
	logger := zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
	return logger, file, nil
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}
