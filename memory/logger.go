package memory

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs the diagnostics sink for per-read traces.
// Traces are emitted at Debug level; pass a logger with that level
// enabled to see them.
func SetLogger(l *zap.Logger) {
	logger = l
}

func debugf(format string, args ...any) {
	Logger().Sugar().Debugf(format, args...)
}
