package logger

import (
	"os"
	"sync"
)

var (
	globalLogger *Logger
	mu           sync.RWMutex
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		defaultLevel := "info"
		if os.Getenv("DEBUG") == "true" {
			defaultLevel = "debug"
		} else if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
			defaultLevel = lvl
		}
		globalLogger = New(Config{
			Level:  defaultLevel,
			Format: "console",
			Output: "stdout",
		})
	}
	return globalLogger
}

// SetLogger sets the global logger instance. Component loggers created
// before the call keep the previous sink.
func SetLogger(logger *Logger) {
	mu.Lock()
	globalLogger = logger
	mu.Unlock()
	SetGlobalLogger(logger)
}
