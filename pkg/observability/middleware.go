package observability

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// ClientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware attaches request fields to the context, recovers panics and
// logs one entry per request.
func Middleware(l *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = fmt.Sprintf("req-%s", uuid.New().String())
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := WithFields(r.Context(),
				Field{"request_id", requestID},
				Field{"path", r.URL.Path},
				Field{"method", r.Method},
				Field{"client_ip", ClientIP(r)},
			)
			r = r.WithContext(ctx)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				if p := recover(); p != nil {
					l.Error(ctx, "Recovered from panic", fmt.Errorf("reason: %+v", p))
					if !rec.wrote {
						http.Error(rec, "internal server error", http.StatusInternalServerError)
					}
				}
				if r.URL.Path == "/healthz" {
					return
				}
				l.Info(WithFields(ctx,
					Field{"status", rec.status},
					Field{"latency_ns", time.Since(start).Nanoseconds()},
				), "Request processed")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
