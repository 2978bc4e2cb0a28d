// Package logger provides the process-wide structured logger.
package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Log levels accepted in log.level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process logger. The first call fixes the level; later
// calls return the same instance whatever level they pass.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}

// ParseLevel canonicalizes a configured level. "warning" is read as warn.
func ParseLevel(s string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return l, nil
	case "warning":
		return WarnLevel, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}
