package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"accountd/internal/apperr"
	"accountd/internal/ids"
	"accountd/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID assigns each request an identifier for logs and error reports.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ids.NewRequestID()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request identifier, "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Logging emits one structured line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.LogEntry("info", map[string]any{
			"msg":         "request",
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  RequestIDFromContext(r.Context()),
		})
	})
}

// RejectHTTP refuses plaintext traffic behind a TLS-terminating proxy.
func RejectHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") != "https" {
			writeErrorEnvelope(w, http.StatusForbidden,
				apperr.New(apperr.Forbidden, "SSL is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover converts a panic into a generic internal error after reporting it.
// No panic detail ever reaches the client.
func Recover(next http.Handler, reporter obs.Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := apperr.New(apperr.Internal, "Unknown Error.")
				reporter.Report(err.WithContext(map[string]any{"panic": rec}), map[string]any{
					"request_id": RequestIDFromContext(r.Context()),
					"path":       r.URL.Path,
				})
				writeErrorEnvelope(w, http.StatusInternalServerError, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows the configured origins; with none configured, any origin.
func CORS(next http.Handler, allowed []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowed) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// MaxBodyBytes limits request body size.
func MaxBodyBytes(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// rateLimiter applies a token bucket per client IP. The bucket map is
// touched by every request goroutine and by the background sweeper, so all
// access goes through mu. Close stops the sweeper.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   int
	perSec  int
	ttl     time.Duration
	ticker  *time.Ticker
	done    chan struct{}
}

type bucket struct {
	lim *rate.Limiter
	ts  time.Time
}

func newRateLimiter(burst, perSecond int) *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		burst:   burst,
		perSec:  perSecond,
		ttl:     5 * time.Minute,
		ticker:  time.NewTicker(1 * time.Minute),
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *rateLimiter) sweep() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.ticker.C:
			rl.removeStale(time.Now())
		}
	}
}

func (rl *rateLimiter) removeStale(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, b := range rl.buckets {
		if now.Sub(b.ts) > rl.ttl {
			delete(rl.buckets, k)
		}
	}
}

// allow reserves a token for ip, creating the bucket on first sight.
// rate.Limiter is safe for concurrent use, so only the map and the
// last-seen timestamp need the lock.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rl.perSec), rl.burst)}
		rl.buckets[ip] = b
	}
	b.ts = time.Now()
	rl.mu.Unlock()
	return b.lim.Allow()
}

func (rl *rateLimiter) Close() {
	rl.ticker.Stop()
	close(rl.done)
}

func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":      "rate limit exceeded",
				"request_id": RequestIDFromContext(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the caller address; behind a proxy chain the first
// X-Forwarded-For hop wins.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
