// Package observability owns the process-wide loggers and the Prometheus
// metrics exporter.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used by CLI commands: console encoding, human-friendly.
	CLILogger *zap.Logger

	// ServerLogger is used by the HTTP server: JSON encoding, structured.
	ServerLogger *zap.Logger
)

// InitCLILogger initializes the CLI logger. Verbose lowers the level to debug.
func InitCLILogger(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize CLI logger: %v\n", err)
		os.Exit(1)
	}
	CLILogger = logger
}

// InitServerLogger initializes the structured server logger at the given
// level string (debug, info, warn, error).
func InitServerLogger(service, levelStr string) {
	level := parseLogLevel(levelStr)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize server logger: %v\n", err)
		os.Exit(1)
	}
	ServerLogger = logger
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
