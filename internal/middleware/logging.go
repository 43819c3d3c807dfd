// internal/middleware/logging.go
//
// Access log and panic recovery.
//
// Context
// -------
// Logger writes one structured line per request after the handler returns:
// request ID, method, path, status, bytes, and latency.  5xx responses log
// at ERROR, 4xx at WARN, everything else at INFO.  Recoverer converts a
// handler panic into a 500 and an ERROR line with the stack, so one broken
// page never takes the process down.
//
// Notes
// -----
// • Logger wraps the ResponseWriter; it must sit outside Recoverer so the
//   recovered 500 is what gets logged.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// statusRecorder captures the status code and body size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Logger returns access-log middleware writing to log.
func Logger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			kv := []any{
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case rec.status >= 500:
				log.Errorw("http request", kv...)
			case rec.status >= 400:
				log.Warnw("http request", kv...)
			default:
				log.Infow("http request", kv...)
			}
		})
	}
}

// Recoverer turns panics into 500 responses.  http.ErrAbortHandler is
// re-panicked so net/http can abort the connection as intended.
func Recoverer(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				log.Errorw("panic recovered",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
					"panic", rv,
					"stack", string(debug.Stack()),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
