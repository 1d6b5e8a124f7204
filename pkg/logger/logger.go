package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
)

func Init(level string, development bool) error {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	var err error
	Log, err = config.Build()
	if err != nil {
		return err
	}

	Sugar = Log.Sugar()
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Named returns a child logger scoped to a component. Falls back to a no-op
// logger so library code can log before Init (e.g. in tests).
func Named(name string) *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log.Named(name)
}

func Close() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func Error(msg string, fields ...zap.Field) {
	Named("").Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Named("").Warn(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Named("").Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Named("").Debug(msg, fields...)
}
