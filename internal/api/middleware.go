package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Clients idle this long lose their limiter.
const clientIdleTTL = 10 * time.Minute

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter rate limits requests per client IP.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewClientLimiter allows each client perSecond requests with the given burst.
func NewClientLimiter(perSecond float64, burst int) *ClientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		clients:   make(map[string]*clientEntry),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// clientIP is the host part of RemoteAddr. Behind a trusted proxy the
// server installs middleware.RealIP first, which rewrites RemoteAddr from
// the forwarding headers.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Allow reports whether ip may make another request now.
func (l *ClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= clientIdleTTL {
		l.sweep(now)
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) sweep(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) >= clientIdleTTL {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

// Len returns the number of clients currently tracked.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("Request handled",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
