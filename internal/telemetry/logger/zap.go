package logger

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// globalLevel is shared by every logger so SetLevel applies everywhere.
var globalLevel = zap.NewAtomicLevel()

// zapLogger implements Logger on top of a zap sugared logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
	ctx   context.Context
}

func newZapLogger(output io.Writer, format string, addSource bool) *zapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(format) {
	case "text", "console":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), globalLevel)

	var opts []zap.Option
	if addSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &zapLogger{
		sugar: zap.New(core, opts...).Sugar(),
		ctx:   context.Background(),
	}
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, redactArgs(args)...)
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, redactArgs(args)...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, redactArgs(args)...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, redactArgs(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{
		sugar: l.sugar.With(redactArgs(args)...),
		ctx:   l.ctx,
	}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	return &zapLogger{
		sugar: l.sugar,
		ctx:   ctx,
	}
}

func (l *zapLogger) sync() error {
	return l.sugar.Sync()
}
