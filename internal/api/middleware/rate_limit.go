package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grocery-tracker/internal/pkg/common"
)

// RateLimiter 依客戶端 IP 分別限流的令牌桶
// 閒置超過一個視窗的限流器會被 go-cache 回收
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	window   time.Duration
	visitors *gocache.Cache
}

// NewRateLimiter 創建新的限流器，window 內最多 requests 次
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		window:   window,
		visitors: gocache.New(window, 2*window),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := rl.visitors.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	// 每次存取都延長存活時間
	rl.visitors.Set(key, limiter, gocache.DefaultExpiration)
	return limiter
}

// Allow 檢查 key 是否還有可用令牌
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).Allow()
}

// retryAfter 下一個令牌需要等待的秒數
func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 {
		return int(rl.window.Seconds())
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", limiter.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "Too many requests",
			})
			return
		}

		c.Next()
	}
}
