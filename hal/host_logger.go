//go:build !tinygo

package hal

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds the host diagnostic logger. It writes to stderr so the
// serial console on stdout stays clean.
func NewZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core), nil
}

type hostLogger struct {
	z *zap.Logger
}

func newHostLogger(z *zap.Logger) *hostLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &hostLogger{z: z.Named("kernel")}
}

func (l *hostLogger) WriteLineString(s string) {
	l.z.Info(s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.z.Info(string(b))
}
