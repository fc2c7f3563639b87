// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConfig returns the console logger config: ISO8601 timestamps, capital
// levels and no stacktraces.
func NewConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// New returns a named sugared logger at level ("debug", "info", "warn",
// "error"). jsonOut switches the encoder to JSON. Every entry is also written,
// console-encoded, to each of extra.
func New(name, level string, jsonOut bool, extra ...zapcore.WriteSyncer) (*zap.SugaredLogger, error) {
	cfg := NewConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level.SetLevel(lvl)
	if jsonOut {
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	var opts []zap.Option
	if len(extra) > 0 {
		tee := zapcore.NewCore(
			zapcore.NewConsoleEncoder(NewConfig().EncoderConfig),
			zapcore.NewMultiWriteSyncer(extra...),
			cfg.Level,
		)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, tee)
		}))
	}
	l, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return l.Named(name).Sugar(), nil
}
