package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brizzai/tigoplanes/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// base is handed to components through Named; helpers backs the
	// package-level functions and skips their frame when reporting callers.
	base    = zap.NewNop()
	helpers = base
)

// setGlobal installs l as the process logger.
func setGlobal(l *zap.Logger) {
	base = l
	helpers = l.WithOptions(zap.AddCallerSkip(1))
}

// consoleEncoder is what an operator reads in a terminal while running
// tigoplanes serve or open.
func consoleEncoder(color bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// jsonEncoder is used for the json format and always for the log file.
func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return zapcore.NewJSONEncoder(ec)
}

// NewLogger builds a logger from cfg. Console output goes to stderr since
// the CLI prints its results on stdout. Credentials logged as plain strings
// under a known key are masked before any output sees them.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %v", err)
	}

	var console zapcore.Encoder
	switch cfg.Format {
	case "json":
		console = jsonEncoder()
	case "console", "":
		console = consoleEncoder(cfg.Color)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	var cores []zapcore.Core
	// Never log nowhere: without a file the console stays on.
	if !cfg.DisableConsole || cfg.OutputPath == "" {
		cores = append(cores, zapcore.NewCore(console, zapcore.Lock(os.Stderr), level))
	}
	if cfg.OutputPath != "" {
		f, err := openLogFile(cfg.OutputPath, cfg.AppendToFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(f), level))
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	}
	if cfg.Format != "json" {
		opts = append(opts, zap.Development())
	}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(redactCore{zapcore.NewTee(cores...)}, opts...), nil
}

func openLogFile(path string, appendToFile bool) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !appendToFile {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}
	return f, nil
}

// Named returns a child of the process logger for one component
func Named(component string) *zap.Logger {
	return base.Named(component)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	helpers.Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	helpers.Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	helpers.Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	helpers.Error(msg, fields...)
}
