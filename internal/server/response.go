package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	gctx "github.com/gaugekit/gauge/internal/pkg/context"
)

// ResponseMeta contains metadata for API responses.
type ResponseMeta struct {
	RequestID string `json:"request_id"`
	LatencyMS int64  `json:"latency_ms"`
	Timestamp string `json:"timestamp"`
}

// Envelope wraps successful /v1 responses.
type Envelope struct {
	Data json.RawMessage `json:"data"`
	Meta ResponseMeta    `json:"meta"`
}

// bufferedWriter holds the handler's response until it can be wrapped.
type bufferedWriter struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func (bw *bufferedWriter) WriteHeader(code int) { bw.statusCode = code }

func (bw *bufferedWriter) Write(b []byte) (int, error) { return bw.body.Write(b) }

// ResponseEnvelope wraps successful JSON responses under /v1/ as
// {"data": ..., "meta": ...}. Errors and non-JSON bodies pass through.
func ResponseEnvelope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		bw := &bufferedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(bw, r)

		body := bytes.TrimSpace(bw.body.Bytes())
		if bw.statusCode >= 400 || len(body) == 0 || !json.Valid(body) {
			w.WriteHeader(bw.statusCode)
			w.Write(bw.body.Bytes())
			return
		}

		env := Envelope{
			Data: body,
			Meta: ResponseMeta{
				RequestID: gctx.RequestID(r.Context()),
				LatencyMS: time.Since(start).Milliseconds(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(bw.statusCode)
		json.NewEncoder(w).Encode(env)
	})
}
