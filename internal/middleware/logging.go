package middleware

import (
	"net/http"
	"time"

	"gembiz2api/gateway/internal/logger"
	"gembiz2api/gateway/internal/pkg/id"
)

func Logging(next http.Handler) http.Handler {
	level := logger.GetLevel()
	if level == logger.LogOff {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		w.Header().Set("X-Request-Id", id.RequestID())
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Request(r.Method, r.URL.Path, sw.statusCode, time.Since(start))
	})
}

// statusWriter captures the status code for the request line log.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
