package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/w-h-a/doclens/internal/service"
	"golang.org/x/time/rate"
)

// limiterIdle is how long a bucket may go unused before it is dropped.
const limiterIdle = time.Hour

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per caller source.
type Limiter struct {
	limit       rate.Limit
	burst       int
	buckets     map[string]*bucket
	lastCleanup time.Time
	now         func() time.Time
	mtx         sync.Mutex
}

func (l *Limiter) Allow(source string) bool {
	return l.get(source).AllowN(l.now(), 1)
}

func (l *Limiter) get(source string) *rate.Limiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	now := l.now()

	// only buckets idle for a full period are dropped; an active caller keeps
	// its drained bucket
	if now.Sub(l.lastCleanup) > limiterIdle {
		for src, b := range l.buckets {
			if now.Sub(b.lastSeen) > limiterIdle {
				delete(l.buckets, src)
			}
		}
		l.lastCleanup = now
	}

	b, ok := l.buckets[source]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[source] = b
	}
	b.lastSeen = now

	return b.limiter
}

func (l *Limiter) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.buckets)
}

// Middleware must run after Authenticate.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(CallerFrom(r.Context()).Source()) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "too many requests, slow down",
				Kind:  service.ErrQuotaExceeded.Error(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func NewLimiter(limit rate.Limit, burst int) *Limiter {
	return newLimiter(limit, burst, time.Now)
}

func newLimiter(limit rate.Limit, burst int, now func() time.Time) *Limiter {
	return &Limiter{
		limit:       limit,
		burst:       burst,
		buckets:     map[string]*bucket{},
		lastCleanup: now(),
		now:         now,
	}
}
