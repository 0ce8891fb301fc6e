// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger used by every picozot component.
// The level comes from the logLevel preference.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a logLevel preference to a zap level. The second return
// is false for unrecognised values, in which case info is returned.
func ParseLevel(level string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}

// New returns a console logger writing to the given output paths (stderr
// when none are given). An invalid level falls back to info and is
// reported once at warn.
func New(level string, outputPaths ...string) (*zap.Logger, error) {
	lvl, ok := ParseLevel(level)

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Sampling = nil
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}
	config.OutputPaths = outputPaths
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.Named("picozot")
	if !ok {
		logger.Warn("Invalid log level, using info", zap.String("level", level))
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
