package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/asakura-games/guildserver/cache"
	"github.com/asakura-games/guildserver/config"
	"github.com/gin-gonic/gin"
)

const (
	PlayerIDKey = "player_id"
	ServerIDKey = "server_id"
)

// SessionKey builds the cache key a login session is stored under.
func SessionKey(token string) string { return "session:" + token }

// Auth validates the Bearer JWT token and checks the session cache, so a
// logout invalidates the token before its expiry.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(PlayerIDKey, claims.PlayerID)
		ctx.Set(ServerIDKey, claims.ServerID)
		ctx.Next()
	}
}

// GetPlayerID retrieves the authenticated player ID from the Gin context.
func GetPlayerID(c *gin.Context) string {
	if v, exists := c.Get(PlayerIDKey); exists {
		return v.(string)
	}
	return ""
}

// GetServerID retrieves the authenticated player's shard from the Gin context.
func GetServerID(c *gin.Context) string {
	if v, exists := c.Get(ServerIDKey); exists {
		return v.(string)
	}
	return ""
}
