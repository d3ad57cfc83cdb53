package logger

import (
	"net/http"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. Init must be called before use; helpers
// below tolerate a nil Log so early startup paths do not crash.
var Log *zap.Logger

// Init configures the global logger. level is one of debug/info/warn/error
// (empty falls back to the VOXD_LOG_LEVEL env var, then info). format is
// "json" or "text".
func Init(level, format string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("VOXD_LOG_LEVEL")))
	}
	var zl zapcore.Level
	switch lvl {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn", "warning":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	default:
		zl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zl)
	Log = zap.New(core)
}

// Sync flushes buffered log entries.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Debug logs at debug level with zap fields.
func Debug(msg string, fields ...zap.Field) {
	if Log == nil {
		return
	}
	Log.Debug(msg, fields...)
}

// Info logs at info level with zap fields.
func Info(msg string, fields ...zap.Field) {
	if Log == nil {
		return
	}
	Log.Info(msg, fields...)
}

// Warn logs at warn level with zap fields.
func Warn(msg string, fields ...zap.Field) {
	if Log == nil {
		return
	}
	Log.Warn(msg, fields...)
}

// Error logs at error level with zap fields.
func Error(msg string, fields ...zap.Field) {
	if Log == nil {
		return
	}
	Log.Error(msg, fields...)
}

// maskedHeaders are identity proofs; their values must never reach the logs.
var maskedHeaders = map[string]struct{}{
	"authorization":    {},
	"x-user-signature": {},
}

// RequestHeaders flattens a request's headers into sorted key=value pairs
// with identity-proof values masked.
func RequestHeaders(r *http.Request) []string {
	out := make([]string, 0, len(r.Header))
	for k, vals := range r.Header {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		if _, ok := maskedHeaders[strings.ToLower(k)]; ok {
			v = "<masked>"
		}
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// LogRequest records one incoming request.
func LogRequest(r *http.Request) {
	Info("incoming_request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.Strings("headers", RequestHeaders(r)),
	)
}
