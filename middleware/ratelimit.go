package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit enforces a per-client-IP token bucket across the whole API, so
// one spamming client (a stuck auto-clicker mid-raid, typically) cannot
// starve the rest of the shard. r is sustained requests per second, b the
// burst allowance.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	visitors := &sync.Map{}

	// Buckets for clients idle past ten minutes are dropped periodically.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute)
			visitors.Range(func(k, v interface{}) bool {
				if v.(*visitor).lastSeen.Before(cutoff) {
					visitors.Delete(k)
				}
				return true
			})
		}
	}()

	bucketFor := func(ip string) *rate.Limiter {
		v, _ := visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(r, b)})
		vis := v.(*visitor)
		vis.lastSeen = time.Now()
		return vis.limiter
	}

	return func(c *gin.Context) {
		if !bucketFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
