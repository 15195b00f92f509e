package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

// RequestIDKey 是 context 中請求編號的鍵
const RequestIDKey contextKey = "request_id"

var global zerolog.Logger

func init() {
	// 未呼叫 Init 前也能輸出，方便測試與工具程式
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 初始化全域 logger
// format 為 "console" 時輸出彩色易讀格式，否則輸出 JSON
func Init(level string, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	global = logger.With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID 將請求編號放入 context，後續日誌自動帶上
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Debug 回傳 debug 等級的日誌事件
func Debug(ctx context.Context) *zerolog.Event {
	return attach(ctx, global.Debug())
}

// Info 回傳 info 等級的日誌事件
func Info(ctx context.Context) *zerolog.Event {
	return attach(ctx, global.Info())
}

// Warn 回傳 warn 等級的日誌事件
func Warn(ctx context.Context) *zerolog.Event {
	return attach(ctx, global.Warn())
}

// Error 回傳 error 等級的日誌事件
func Error(ctx context.Context) *zerolog.Event {
	return attach(ctx, global.Error())
}

func attach(ctx context.Context, ev *zerolog.Event) *zerolog.Event {
	if id := requestID(ctx); id != "" {
		ev = ev.Str("request_id", id)
	}
	return ev
}
