package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel is a message severity. Messages below the current level are
// dropped.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel atomic.Int32
	levelOnce    sync.Once
)

// initLevel initializes the log level from environment variables.
// An explicit SetLevel call made before the first log line wins.
func initLevel() {
	levelOnce.Do(func() {
		currentLevel.Store(int32(levelFromEnv()))
	})
}

// levelFromEnv resolves the level from DEBUG and DATALINT_LOG_LEVEL.
func levelFromEnv() LogLevel {
	if debug := os.Getenv("DEBUG"); debug != "" {
		switch strings.ToLower(debug) {
		case "1", "true", "yes", "on":
			return LevelDebug
		}
	}

	level, err := ParseLevel(os.Getenv("DATALINT_LOG_LEVEL"))
	if err != nil {
		return LevelInfo
	}
	return level
}

// ParseLevel converts a level name into a LogLevel. The empty string maps to info.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// SetLevel overrides the level derived from the environment.
func SetLevel(level LogLevel) {
	levelOnce.Do(func() {})
	currentLevel.Store(int32(level))
}

// SetOutput redirects all log output. Used by the CLI and by tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// GetLevel returns the active level.
func GetLevel() LogLevel {
	initLevel()
	return LogLevel(currentLevel.Load())
}

// IsDebugEnabled reports whether Debug messages are written.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

var tags = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

func logf(level LogLevel, format string, args ...any) {
	if GetLevel() <= level {
		log.Printf(tags[level]+format, args...)
	}
}

// Debug logs at debug level, enabled by DEBUG=1 or DATALINT_LOG_LEVEL=debug.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info logs at info level.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error logs at error level.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
