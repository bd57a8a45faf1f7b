package handlers

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/snapshot/internal/metrics"
)

// HTTPLogger logs every request with its status and latency and counts it by status class.
func HTTPLogger(reg *metrics.Registry, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		wr := NewStatusRecorder(w)
		handler.ServeHTTP(wr, r)

		reg.Inc(r.Context(), metrics.HTTPRequests, map[string]string{
			"method": r.Method,
			"status": metrics.StatusClass(wr.Status),
		}, 1)
		slog.Info("http",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wr.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.Status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
