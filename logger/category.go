package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Category groups log lines by subsystem.
type Category string

const (
	CategoryAPI     Category = "api"
	CategoryCache   Category = "cache"
	CategoryNetwork Category = "network"
	CategoryOffline Category = "offline"
	CategoryUI      Category = "ui"
	CategoryGeneral Category = "general"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryAPI, CategoryCache, CategoryNetwork, CategoryOffline, CategoryUI, CategoryGeneral,
}

// Level is the severity passed to Log.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
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
		return "unknown"
	}
}

// ParseCategory maps a name onto a Category, falling back to CategoryGeneral.
func ParseCategory(name string) Category {
	n := Category(strings.ToLower(strings.TrimSpace(name)))
	for _, c := range Categories {
		if c == n {
			return c
		}
	}
	return CategoryGeneral
}

// Writer is the fire-and-forget logging sink the core packages depend on.
// *Logger satisfies it.
type Writer interface {
	Log(msg string, category Category, level Level, fields ...map[string]interface{})
}

// Log writes msg at the given level tagged with category. It never fails
// the caller.
func (l *Logger) Log(msg string, category Category, level Level, fields ...map[string]interface{}) {
	if l == nil {
		return
	}
	cl := l.WithCategory(category)
	switch level {
	case LevelDebug:
		cl.Debug(msg, fields...)
	case LevelWarn:
		cl.Warn(msg, fields...)
	case LevelError:
		cl.Error(msg, fields...)
	default:
		cl.Info(msg, fields...)
	}
}

// WithCategory returns a logger tagged with a category field.
func (l *Logger) WithCategory(category Category) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldCategory, string(category)).Logger(),
		service: l.service,
	}
}

// Nop returns a logger that discards everything. Useful as a default for
// optional logger dependencies and in tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), service: "nop"}
}
