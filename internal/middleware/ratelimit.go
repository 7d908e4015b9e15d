package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/stemsi/olympiad-backend/internal/response"
)

// RateLimiter is a per-caller token bucket. Authenticated callers are keyed
// by user id, anonymous ones by client IP.
type RateLimiter struct {
	visitors *xsync.MapOf[string, visitor]
	rate     int           // Tokens per interval
	interval time.Duration // Refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 submissions per minute).
// Stale visitors are swept until ctx is cancelled.
func NewRateLimiter(ctx context.Context, rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: xsync.NewMapOf[string, visitor](),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()

	return rl
}

// Allow takes a token for key, reporting false when the bucket is empty.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	allowed := false
	rl.visitors.Compute(key, func(v visitor, loaded bool) (visitor, bool) {
		if !loaded {
			v = visitor{tokens: rl.rate, lastSeen: now}
		}

		// Refill tokens based on elapsed time.
		if refill := int(now.Sub(v.lastSeen)/rl.interval) * rl.rate; refill > 0 {
			v.tokens = min(rl.rate, v.tokens+refill)
			v.lastSeen = now
		}

		if v.tokens > 0 {
			v.tokens--
			allowed = true
		}
		return v, false
	})
	return allowed
}

// Middleware returns a Gin middleware that rate-limits requests.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			key = "user:" + strconv.FormatInt(claims.UserID, 10)
		}

		if !rl.Allow(key) {
			c.Header("Retry-After", strconv.Itoa(int(rl.interval.Seconds())))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-3 * rl.interval)
	rl.visitors.Range(func(key string, v visitor) bool {
		if v.lastSeen.Before(cutoff) {
			rl.visitors.Delete(key)
		}
		return true
	})
}
