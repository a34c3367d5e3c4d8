package vm

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

// SetLogger installs the diagnostics sink. State dumps are emitted at
// Info; per-step traces at Debug.
func SetLogger(l *zap.Logger) {
	logger = l
}

func infof(format string, args ...any) {
	Logger().Sugar().Infof(format, args...)
}

func debugf(format string, args ...any) {
	Logger().Sugar().Debugf(format, args...)
}
