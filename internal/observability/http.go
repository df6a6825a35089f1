package observability

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// Middleware records count, latency and in-flight requests for next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTP(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(w.statusCode)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var runIDPath = regexp.MustCompile(`^/v1/runs/[^/]+$`)

// normalizePath collapses run IDs so the path label stays low-cardinality.
func normalizePath(path string) string {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/v1/evaluate", "/v1/metrics", "/v1/runs":
		return path
	}
	if runIDPath.MatchString(path) {
		return "/v1/runs/{id}"
	}
	return "other"
}

// statusCode keeps common codes and groups the rest by class.
func statusCode(code int) string {
	switch code {
	case 200, 201, 204, 400, 404, 405, 413, 422, 429, 500, 503, 504:
		return strconv.Itoa(code)
	}
	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return strconv.Itoa(code)
}
