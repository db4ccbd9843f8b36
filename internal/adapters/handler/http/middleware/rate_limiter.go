package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/logger"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/metrics"
)

const rateLimitPrefix = "kanso:ratelimit:"

// windowScript bumps the counter and starts the window on the first hit.
// Returns {count, pttl_ms}.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RateLimiterMiddleware allows limit requests per client IP in each fixed
// window. Redis failures let the request through.
func RateLimiterMiddleware(rdb redis.Scripter, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)

	return func(c *gin.Context) {
		key := rateLimitPrefix + c.ClientIP()

		count, resetIn, err := hitWindow(c, rdb, key, window)
		if err != nil {
			log.Warn("Rate limiter skipped", zap.String("key", key), zap.Error(err))
			metrics.IncrementRateLimitDecision("skipped")
			c.Next()
			return
		}

		remaining := max(0, int64(limit)-count)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetIn).Unix(), 10))

		if count > int64(limit) {
			metrics.IncrementRateLimitDecision("rejected")
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests, slow down",
				"retry_in_s": int(resetIn.Round(time.Second).Seconds()),
			})
			return
		}

		metrics.IncrementRateLimitDecision("allowed")
		c.Next()
	}
}

func hitWindow(c *gin.Context, rdb redis.Scripter, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := windowScript.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	resetIn := window
	if len(vals) == 2 && vals[1] > 0 {
		resetIn = time.Duration(vals[1]) * time.Millisecond
	}
	return vals[0], resetIn, nil
}
