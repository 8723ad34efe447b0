package ptr

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the ptr package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the ptr package's logger.
// This must be called before any handles are created.
func SetLogger(l *zap.Logger) {
	logger = l
}

func logLifecycle(msg string, d *deleter) {
	if ce := Logger().Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(zap.Stringer("type", d.typ))
	}
}
