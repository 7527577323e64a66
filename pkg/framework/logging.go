package framework

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogRotator creates the rotating writer behind LogFile. Limits can be
// tuned through CARTFIXTURE_LOG_MAX_SIZE (MB), _MAX_BACKUPS and _MAX_AGE (days).
func newLogRotator(logFile string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    parseIntOrDefault("LOG_MAX_SIZE", 10),
		MaxBackups: parseIntOrDefault("LOG_MAX_BACKUPS", 3),
		MaxAge:     parseIntOrDefault("LOG_MAX_AGE", 30),
	}
}

// NewLogger builds the development zap logger behind logr. When logFile is
// set, entries are also written as JSON to a rotating file. The returned
// func flushes and closes the file.
func NewLogger(logFile string) (logr.Logger, func(), error) {
	zapLog, err := zap.NewDevelopment()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("failed to create logger: %w", err)
	}

	if logFile == "" {
		return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }, nil
	}

	rotator := newLogRotator(logFile)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotator),
		zapcore.DebugLevel,
	)
	zapLog = zapLog.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))

	flush := func() {
		_ = zapLog.Sync()
		_ = rotator.Close()
	}
	return zapr.NewLogger(zapLog), flush, nil
}
