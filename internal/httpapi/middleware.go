package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder captures the status and size of what a handler wrote.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.status = code
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.wroteHeader = true
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// requestLogger logs one record per request. The query is included since the
// date range lives there. 5xx responses log at error, 4xx at warn.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)

		level := slog.LevelInfo
		switch {
		case rr.status >= 500:
			level = slog.LevelError
		case rr.status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(context.Background(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
			slog.Int("status", rr.status),
			slog.Int("bytes", rr.bytes),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
