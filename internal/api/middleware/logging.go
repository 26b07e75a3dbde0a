package middleware

import (
	"net/http"
	"time"

	xlog "github.com/video-stream/clipper/internal/log"
)

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrappedWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// silentPaths are scraped or polled endpoints that are only logged on errors (status >= 400).
var silentPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Logger writes one access log line per request.
func Logger(next http.Handler) http.Handler {
	logger := xlog.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if silentPaths[r.URL.Path] && wrapped.statusCode < 400 {
			return
		}

		evt := logger.Info()
		if wrapped.statusCode >= 500 {
			evt = logger.Warn()
		}
		evt.Str(xlog.FieldRequestID, xlog.RequestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Int64("bytes", wrapped.written).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request")
	})
}
