// Package xlog builds the core's internal operational logger: storage
// failures absorbed during startup, block-write failures after a record,
// decoder registration errors. Replay reports CRC/signature mismatches on
// the console sink, not through this logger. This is distinct from the
// domain-facing console sink (package console) which emits the
// spec-mandated "<tick>:<band>(<level>) : <text>" report lines — xlog is
// for the subsystem talking about itself, not for the log it is keeping.
package xlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New builds a SugaredLogger at the given level, colorized when attached
// to a terminal.
func New(level zapcore.Level) (*zap.SugaredLogger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Noop returns a logger that discards everything, used by tests and by
// callers that don't want internal diagnostics on stderr.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
