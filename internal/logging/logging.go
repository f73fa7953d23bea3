// Package logging builds the process logger. Every entry is written to both
// stdout and stderr so it shows up whichever stream the host collects.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(environment string) (*zap.Logger, error) {
	return newTee(environment, os.Stdout, os.Stderr)
}

func newTee(environment string, outputs ...io.Writer) (*zap.Logger, error) {
	var (
		encoder zapcore.Encoder
		level   zapcore.Level
		opts    []zap.Option
	)

	switch environment {
	case "production":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		level = zapcore.InfoLevel
		opts = append(opts, zap.AddCaller())
	case "test":
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = ""
		encoder = zapcore.NewJSONEncoder(cfg)
		level = zapcore.DebugLevel
	default:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
		opts = append(opts, zap.AddCaller(), zap.Development())
	}

	cores := make([]zapcore.Core, 0, len(outputs))
	for _, out := range outputs {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(zapcore.AddSync(out)), level))
	}

	return zap.New(zapcore.NewTee(cores...), opts...), nil
}
