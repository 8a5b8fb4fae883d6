package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// saveLimiter throttles tile saves per canvas. The client already debounces
// strokes; this is the server-side backstop against misbehaving clients.
type saveLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	done     chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newSaveLimiter allows rps saves per second per canvas with the given
// burst. It prunes idle entries in the background.
func newSaveLimiter(rps float64, burst int) *saveLimiter {
	sl := &saveLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}
	go sl.prune()
	return sl
}

// Close stops the background pruner.
func (sl *saveLimiter) Close() {
	close(sl.done)
}

func (sl *saveLimiter) allow(canvasID string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	e, ok := sl.limiters[canvasID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(sl.limit, sl.burst)}
		sl.limiters[canvasID] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (sl *saveLimiter) prune() {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-sl.done:
			return
		case <-t.C:
			sl.mu.Lock()
			for id, e := range sl.limiters {
				if time.Since(e.lastSeen) > 10*time.Minute {
					delete(sl.limiters, id)
				}
			}
			sl.mu.Unlock()
		}
	}
}

// Middleware rejects over-rate save requests with 429.
func (sl *saveLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sl.allow(c.Param("canvas_id")) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"ok": false, "error": "too many save requests for this canvas"})
			return
		}
		c.Next()
	}
}
