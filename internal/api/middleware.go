package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDFrom returns the request ID stored by the request ID middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRequestID reuses the caller's X-Request-ID or assigns a new UUID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request at a level chosen by the status.
func withLogging(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := logger.WithFields(
			logging.Field{Key: logging.FieldRequestID, Value: RequestIDFrom(r.Context())},
			logging.Field{Key: logging.FieldMethod, Value: r.Method},
			logging.Field{Key: logging.FieldPath, Value: r.URL.Path},
			logging.Field{Key: logging.FieldHTTPStatus, Value: rec.status},
			logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})
		switch {
		case rec.status >= http.StatusInternalServerError:
			log.Error("HTTP request completed")
		case rec.status >= http.StatusBadRequest:
			log.Warn("HTTP request completed")
		default:
			log.Info("HTTP request completed")
		}
	})
}

// withRecover turns a handler panic into a 500 response.
func withRecover(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("Handler panicked",
					logging.Field{Key: logging.FieldRequestID, Value: RequestIDFrom(r.Context())},
					logging.Field{Key: "panic", Value: v})
				writeJSON(w, http.StatusInternalServerError, errorBody{
					Error: "internal server error",
					Kind:  forecasterror.Internal,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// clientLimiter hands out one token bucket per client IP.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientEntry
	idleTTL time.Duration
	now     func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientEntry),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (c *clientLimiter) allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.clients[ip]
	if !ok {
		c.evictIdle(now)
		entry = &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops clients not seen within idleTTL. Callers hold mu.
func (c *clientLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-c.idleTTL)
	for ip, e := range c.clients {
		if e.lastSeen.Before(cutoff) {
			delete(c.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// withRateLimit answers 429 once a client exhausts its bucket.
func withRateLimit(limiter *clientLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error: "rate limit exceeded",
				Kind:  "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
