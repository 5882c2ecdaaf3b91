// Package logging builds the process-wide zap logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// File rotation limits.
const (
	maxSizeMB  = 100
	maxBackups = 5
	maxAgeDays = 28
)

// New returns a logger writing to stdout in the given format. When file is
// set, entries are also written as JSON to a rotated log file.
func New(format, level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return zap.New(newCore(format, file, lvl, zapcore.AddSync(os.Stdout)), zap.AddCaller()), nil
}

func newCore(format, file string, level zapcore.Level, stdout zapcore.WriteSyncer) zapcore.Core {
	cores := []zapcore.Core{zapcore.NewCore(encoder(format), stdout, level)}

	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder(FormatJSON), zapcore.AddSync(rotated), level))
	}

	return zapcore.NewTee(cores...)
}

func encoder(format string) zapcore.Encoder {
	if format == FormatJSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder

		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return zapcore.NewConsoleEncoder(cfg)
}
