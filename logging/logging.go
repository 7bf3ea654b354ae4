// Package logging adapts zap to the dispatch core's Logger interface.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements bugline.Logger on a zap sugared logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a production zap logger at the given level. Unknown level
// strings fall back to info.
func New(level string) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: building zap logger: %w", err)
	}
	return &ZapLogger{sugar: base.Sugar()}, nil
}

// NewDevelopment builds a console logger for local runs and tests.
func NewDevelopment() *ZapLogger {
	base, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &ZapLogger{sugar: base.Sugar()}
}

// Wrap adapts an existing zap logger.
func Wrap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries. Call on shutdown.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
