// Package middleware holds the HTTP middlewares shared by every route.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"ytbatch/internal/observability"
)

type contextKey string

const RequestIDKey contextKey = "requestID"

const (
	HeaderXRequestID = "X-Request-ID"
)

// unmatchedRoute labels requests no pattern matched, keeping metric cardinality bounded.
const unmatchedRoute = "unmatched"

type RequestLog struct {
	ID            string `json:"id,omitempty"`
	Method        string `json:"method"`
	URI           string `json:"uri"`
	RemoteAddr    string `json:"remote_addr"`
	Proto         string `json:"proto"`
	ContentLength int64  `json:"content_length"`
}

// statusWriter remembers the status code and body size written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}

	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.size += n

	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recoverer turns a handler panic into a 500 unless the response already started.
// http.ErrAbortHandler is re-raised.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rvr)
				}

				slog.ErrorContext(r.Context(), "http handler panic",
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())))

				if sw.status == 0 {
					http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		}()
		next.ServeHTTP(sw, r)
	})
}

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := r.Context().Value(RequestIDKey).(string)

		slog.DebugContext(r.Context(), "http request",
			slog.Any("request", RequestLog{
				ID:            reqID,
				Method:        r.Method,
				URI:           r.RequestURI,
				RemoteAddr:    r.RemoteAddr,
				Proto:         r.Proto,
				ContentLength: r.ContentLength,
			}))
		next.ServeHTTP(w, r)
	})
}

// Metrics records request count, latency and response size per route pattern.
// It must wrap the ServeMux directly so the matched pattern is visible after serving.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			m.RecordHTTPRequest(r.Method, route, status, time.Since(start), sw.size)
		})
	}
}

// MaxBody caps the request body at n bytes; reads past it fail.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
