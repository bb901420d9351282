package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/service"
)

// Identity headers are set by the portal in front of banquet, which owns authentication.
const (
	HeaderUser = "X-Banquet-User"
	HeaderRole = "X-Banquet-Role"
)

type ctxKey int

const actorKey ctxKey = iota

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := service.Actor{
			Name:  strings.TrimSpace(r.Header.Get(HeaderUser)),
			Admin: strings.EqualFold(r.Header.Get(HeaderRole), constants.RoleAdmin),
		}
		if actor.Name == "" {
			actor.Name = "anonymous"
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

func actorFrom(r *http.Request) service.Actor {
	actor, _ := r.Context().Value(actorKey).(service.Actor)
	return actor
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).Admin {
			writeError(w, http.StatusForbidden, "administrator role required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

// limiter hands out one token bucket per client address.
type limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiter(perSecond float64, burst int) *limiter {
	if burst <= 0 {
		burst = 1
	}
	return &limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *limiter) get(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[addr] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// sweep forgets clients idle for longer than idle, until ctx ends.
func (l *limiter) sweep(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for addr, v := range l.visitors {
				if now.Sub(v.lastSeen) > idle {
					delete(l.visitors, addr)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		if !l.get(addr).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests", "Slow down and retry shortly.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
