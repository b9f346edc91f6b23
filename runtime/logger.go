package runtime

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger
)

// Logger returns the package logger. It is a no-op logger until SetLogger
// installs one.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// SetLogger installs l as the package logger. Pass nil to restore the no-op
// default.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func log() *zap.Logger { return Logger() }
