package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/wavesight/internal/version"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// Middleware wraps an http.Handler with extra behavior.
type Middleware func(http.Handler) http.Handler

// Chain wraps handler in the given middleware, first one outermost.
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// pathSet answers membership questions for exact URL paths.
type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) has(path string) bool {
	_, ok := s[path]
	return ok
}

type requestIDKey struct{}

// RequestID returns the request ID carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware tags every request with an X-Request-ID, keeping
// the caller's ID when one is supplied.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = freshRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func freshRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// LoggingMiddleware emits one log line per request and feeds the HTTP
// Prometheus series. Requests to quietPaths stay out of the log but
// still count toward metrics.
func LoggingMiddleware(logger *zap.Logger, quietPaths []string) Middleware {
	quiet := newPathSet(quietPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(sc, r)

			took := time.Since(began)
			if !quiet.has(r.URL.Path) {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", sc.code),
					zap.Duration("duration", took),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", RequestID(r.Context())),
				)
			}

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sc.code)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(took.Seconds())
		})
	}
}

// statusCapture remembers the first status code written so the logger
// and metrics can see it.
type statusCapture struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (sc *statusCapture) WriteHeader(code int) {
	if !sc.wrote {
		sc.code = code
		sc.wrote = true
	}
	sc.ResponseWriter.WriteHeader(code)
}

func (sc *statusCapture) Write(b []byte) (int, error) {
	sc.wrote = true
	return sc.ResponseWriter.Write(b)
}

// SecurityHeadersMiddleware sets the browser hardening headers on every
// response. The CSP allows inline styles because the Swagger UI needs
// them; everything else is same-origin only.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// VersionHeaderMiddleware stamps responses with the running release.
func VersionHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WaveSight-Version", version.Short())
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into a logged 500 instead of
// a dead connection.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestID(r.Context())),
				)
				InternalError(w, "an unexpected error occurred", r.URL.Path)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware applies a per-client token bucket of rps with the
// given burst. Paths in freePaths bypass the limiter, which keeps
// probes and scrapes working while a client is throttled.
func RateLimitMiddleware(rps float64, burst int, freePaths []string) Middleware {
	visitors := newVisitorTable(rate.Limit(rps), burst)
	free := newPathSet(freePaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !free.has(r.URL.Path) && !visitors.allow(clientIP(r)) {
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	maxTrackedClients = 10000
	clientIdleCutoff  = 10 * time.Minute
)

// visitorTable holds one token bucket per client IP, evicting idle
// entries once the table is full.
type visitorTable struct {
	mu    sync.Mutex
	seen  map[string]*visitor
	limit rate.Limit
	burst int
}

type visitor struct {
	bucket *rate.Limiter
	last   time.Time
}

func newVisitorTable(limit rate.Limit, burst int) *visitorTable {
	return &visitorTable{
		seen:  make(map[string]*visitor),
		limit: limit,
		burst: burst,
	}
}

func (t *visitorTable) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.seen[ip]
	if !ok {
		if len(t.seen) >= maxTrackedClients {
			t.evictIdle()
		}
		v = &visitor{bucket: rate.NewLimiter(t.limit, t.burst)}
		t.seen[ip] = v
	}
	v.last = time.Now()
	return v.bucket.Allow()
}

// evictIdle drops clients idle past the cutoff. Callers hold t.mu.
func (t *visitorTable) evictIdle() {
	cutoff := time.Now().Add(-clientIdleCutoff)
	for ip, v := range t.seen {
		if v.last.Before(cutoff) {
			delete(t.seen, ip)
		}
	}
}

// clientIP picks the address rate limiting keys on: the first
// X-Forwarded-For hop when present, the peer address otherwise.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
