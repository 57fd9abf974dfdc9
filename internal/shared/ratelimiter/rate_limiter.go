// Package ratelimiter はクライアント単位のリクエスト頻度制限を提供します。
package ratelimiter

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// staleAfter を過ぎても使われていないキーのリミッターは破棄する
	staleAfter    = 5 * time.Minute
	sweepInterval = 3 * time.Minute
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter は、キー（通常はクライアントIP）ごとにトークンバケットで操作の頻度を制限します。
type RateLimiter struct {
	limit    int           // interval あたりの上限
	interval time.Duration // どの単位で補充するか

	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter は interval あたり limit 回まで許可する RateLimiter を生成します。
// limit 以下の連続リクエストはバーストとして即座に許可されます。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		limiters:  make(map[string]*keyedLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow はキーに対するリクエストを1件消費し、許可されたかを返します。
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).AllowN(rl.now(), 1)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		for k, l := range rl.limiters {
			if now.Sub(l.lastSeen) > staleAfter {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	if l, ok := rl.limiters[key]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := &keyedLimiter{
		limiter:  rate.NewLimiter(rate.Every(rl.interval/time.Duration(rl.limit)), rl.limit),
		lastSeen: now,
	}
	rl.limiters[key] = l
	return l.limiter
}

// retryAfter は次のトークンが補充されるまでの秒数（最低1秒）を返します。
func (rl *RateLimiter) retryAfter() int {
	return max(int((rl.interval / time.Duration(rl.limit)).Seconds()), 1)
}

// Middleware はクライアントIPごとに制限を適用し、超過時は429を返す gin ミドルウェアを返します。
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.Allow(ip) {
			slog.Warn("rate limit exceeded", "remote_addr", ip, "path", c.FullPath())
			c.Header("Retry-After", strconv.Itoa(rl.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
