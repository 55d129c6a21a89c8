package app

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a sugared zap logger to Logger. The component becomes a
// structured field.
type ZapLogger struct {
	Sugar *zap.SugaredLogger
}

func (l ZapLogger) Infof(component string, format string, args ...interface{}) {
	l.Sugar.With("component", component).Infof(format, args...)
}

func (l ZapLogger) Errorf(component string, format string, args ...interface{}) {
	l.Sugar.With("component", component).Errorf(format, args...)
}

// Sync flushes buffered entries.
func (l ZapLogger) Sync() error { return l.Sugar.Sync() }

// NewZapLogger logs JSON to stdout and, when file is non-nil, to file too.
// Debug lowers the level from info to debug.
func NewZapLogger(file io.Writer, debug bool) ZapLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if debug {
		opts = append(opts, zap.Development())
	}
	return ZapLogger{Sugar: zap.New(zapcore.NewTee(cores...), opts...).Sugar()}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}
