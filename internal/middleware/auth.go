package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/redis"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// SessionChecker redis 中保存的当前有效 access token
type SessionChecker interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "msg": msg})
}

func AuthMiddleware(tokens *pkg.TokenManager, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid authorization format")
			return
		}

		tokenStr := parts[1]
		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}

		// redis校验是否是正确的token
		ctx := c.Request.Context()
		origin, err := sessions.GetUserToken(ctx, claims.UserID)
		if errors.Is(err, redis.ErrTokenNotFound) || (err == nil && origin != tokenStr) {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "account has been logged in elsewhere")
			return
		}
		if err != nil {
			abortJSON(c, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
			return
		}

		// 校验通过后更新过期时间
		if err := sessions.ExtendUserToken(ctx, claims.UserID); err != nil {
			abortJSON(c, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}
