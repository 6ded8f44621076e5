package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按用户和作用域限流，须挂在 AuthMiddleware 之后。redis 故障时放行
func RateLimit(l Limiter, scope string, perMinute int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || perMinute <= 0 {
			c.Next()
			return
		}
		uid, _ := c.Get(ContextUserIDKey)
		key := fmt.Sprintf("%s:%v", scope, uid)
		ok, err := l.Allow(c.Request.Context(), key, perMinute, time.Minute)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			abortJSON(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
