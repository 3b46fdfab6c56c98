package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	cleanupInterval = 3 * time.Minute
)

// visitorLimiter 记录单个 IP 的令牌桶及最近访问时间。
type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits public form submissions per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorLimiter
	rps      rate.Limit
	burst    int
	now      func() time.Time
	onLimit  gin.HandlerFunc
}

// NewRateLimiter 创建限流器，rps 为每秒允许的请求数，burst 为突发上限。
// 非正的 rps 表示不限流。
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		visitors: make(map[string]*visitorLimiter),
		rps:      limit,
		burst:    burst,
		now:      time.Now,
		onLimit:  defaultOnLimit,
	}
}

// OnLimit replaces the response written when a client is throttled.
func (rl *RateLimiter) OnLimit(handler gin.HandlerFunc) *RateLimiter {
	if handler != nil {
		rl.onLimit = handler
	}
	return rl
}

func defaultOnLimit(c *gin.Context) {
	c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow reports whether the ip may perform one more request now.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiterFor(ip).AllowN(rl.now(), 1)
}

// Sweep 删除长时间未访问的 IP，返回删除数量。
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	cutoff := rl.now().Add(-limiterIdleTTL)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle entries until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Middleware only counts state-changing requests; GET renders of the form stay free.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		if !rl.Allow(c.ClientIP()) {
			rl.onLimit(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
