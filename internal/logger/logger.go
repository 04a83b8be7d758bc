// Package logger installs the process-wide slog handler backed by zap.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lepinkainen/feed-timeline/pkg/filesystem"
)

// Config controls log level and the optional rotating log file
type Config struct {
	Level      string // debug, info, warn, error
	File       string // Empty logs to the console only
	MaxSize    int    // Megabytes before rotation
	MaxBackups int
	MaxAge     int // Days
}

// ParseLevel maps a level name onto a zap level; empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
}

// New builds a slog logger writing to console, and to cfg.File when set.
// The returned close function flushes zap and closes the log file.
func New(cfg Config, console io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	output := zapcore.AddSync(console)
	var file *lumberjack.Logger

	if cfg.File != "" {
		if err := filesystem.EnsureDirectoryExists(cfg.File); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSize, 64),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAge, 7),
			Compress:   true,
		}
		output = zapcore.NewMultiWriteSyncer(output, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), output, level)
	closeFn := func() error {
		_ = core.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}

	return slog.New(zapslog.NewHandler(core)), closeFn, nil
}

// Init installs the logger as the slog default; debug forces debug level
func Init(cfg Config, debug bool) (func() error, error) {
	if debug {
		cfg.Level = "debug"
	}

	log, closeFn, err := New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(log)
	return closeFn, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
