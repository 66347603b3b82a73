package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/config"
	"github.com/lmittmann/tint"
)

// buildLogger picks the logger for a command run: tint on stderr by
// default, the JSON file handler when the output must stay clean.
func buildLogger(cli *CLI) *slog.Logger {
	if cli.QuietLogs {
		return createFileLogger(cli.LogLevel)
	}
	return createCLILogger(cli.LogLevel)
}

// createCLILogger creates a logger for CLI commands writing to stderr.
func createCLILogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(logLevel),
	}))
}

// createFileLogger creates a logger writing JSON lines to the state log
// file, for callers that must keep stdout/stderr clean.
func createFileLogger(logLevel string) *slog.Logger {
	logPath := config.GetDefaultStoragePaths().LogPath

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
