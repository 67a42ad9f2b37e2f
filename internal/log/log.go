// Package log provides leveled, categorised key=value logging for furigana.
// Logging is off until Init or SetOutput is called (the CLI does so for --debug
// or FURIGANA_DEBUG).
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts debug/info/warn/error; anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatLayout Category = "layout" // document composition and line breaking
	CatRender Category = "render" // canvas and terminal rendering
	CatFont   Category = "font"   // font loading and fallback
	CatConfig Category = "config" // configuration loading
	CatCache  Category = "cache"  // layout memoization
	CatWatch  Category = "watch"  // file watching for render --watch
	CatCLI    Category = "cli"    // command execution
)

type logger struct {
	mu       sync.Mutex
	file     *os.File
	writer   io.Writer
	minLevel Level
}

var std = &logger{minLevel: LevelInfo}

// Init opens path for appending and routes all log output there.
// Returns a cleanup function that closes the file.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	std.mu.Lock()
	std.file = f
	std.writer = f
	std.mu.Unlock()
	return func() {
		std.mu.Lock()
		defer std.mu.Unlock()
		if std.file == f {
			std.writer = nil
			std.file = nil
		}
		_ = f.Close()
	}, nil
}

// SetOutput routes log output to w; nil disables logging.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	std.writer = w
	std.mu.Unlock()
}

// SetMinLevel sets the minimum level that is written.
func SetMinLevel(level Level) {
	std.mu.Lock()
	std.minLevel = level
	std.mu.Unlock()
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) { write(LevelDebug, cat, msg, fields...) }

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) { write(LevelInfo, cat, msg, fields...) }

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) { write(LevelWarn, cat, msg, fields...) }

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) { write(LevelError, cat, msg, fields...) }

// ErrorErr logs err under the "error" key.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(LevelError, cat, msg, fields...)
}

func write(level Level, cat Category, msg string, fields ...any) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.writer == nil || level < std.minLevel {
		return
	}

	// 2025-12-06T10:45:00 [ERROR] [layout] message key=value key2=value2
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", time.Now().Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(std.writer, b.String())
}
