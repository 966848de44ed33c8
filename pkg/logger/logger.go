package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init configures the process-wide JSON logger. Safe to call more than once;
// only the first call takes effect.
func Init() {
	once.Do(func() {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
}

func fieldsToAttrs(fields map[string]interface{}) []any {
	attrs := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		attrs = append(attrs, key, value)
	}
	return attrs
}

func Info(event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Info(event, fieldsToAttrs(fields)...)
}

func Warn(event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Warn(event, fieldsToAttrs(fields)...)
}

func Error(event string, err error, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	attrs := append(fieldsToAttrs(fields), "error", err.Error())
	log.Error(event, attrs...)
}

func InfoWithUser(userID, event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	attrs := append(fieldsToAttrs(fields), "user_id", userID)
	log.Info(event, attrs...)
}

func WarnWithUser(userID, event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	attrs := append(fieldsToAttrs(fields), "user_id", userID)
	log.Warn(event, attrs...)
}
