package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide zap logger from the LOG_LEVEL setting.
// Unparseable levels fall back to info. Debug runs get a colorized console
// encoder for local reading; every other level ships compact JSON.
func NewLogger(level string) *zap.Logger {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if parsed == zapcore.DebugLevel {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

func accessLogFields(r *http.Request, ww middleware.WrapResponseWriter, start time.Time) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", ww.Status()),
		zap.Int("bytes", ww.BytesWritten()),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("remote_addr", r.RemoteAddr),
	}
}

// ZapLoggerMiddleware writes one access-log line per request. Severity
// follows the status class (Error for 5xx, Warn for 4xx, Info otherwise)
// so failing routes stand out without a separate error stream.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				switch {
				case ww.Status() >= 500:
					logger.Error("http request", accessLogFields(r, ww, start)...)
				case ww.Status() >= 400:
					logger.Warn("http request", accessLogFields(r, ww, start)...)
				default:
					logger.Info("http request", accessLogFields(r, ww, start)...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
