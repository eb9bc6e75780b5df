package security

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis        *redis.Client
	maxPerMinute int64
}

func NewRateLimiter(redisClient *redis.Client, maxPerMinute int) *RateLimiter {
	return &RateLimiter{
		redis:        redisClient,
		maxPerMinute: int64(maxPerMinute),
	}
}

// BookingRateLimit throttles checkout attempts per user, falling back to
// the client IP for unauthenticated requests. Counters live in Redis so
// the limit holds across instances.
func (r *RateLimiter) BookingRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		identity := e.RealIP()
		if e.Auth != nil {
			identity = fmt.Sprintf("user:%s", e.Auth.Id)
		}

		ctx := e.Request.Context()
		key := fmt.Sprintf("ratelimit:booking:%s", identity)

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not take bookings with it.
			log.Printf("Error checking rate limit for %s: %v", identity, err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, time.Minute)
		}
		if count > r.maxPerMinute {
			return apis.NewApiError(429, "Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

// AntiBotCheck rejects requests from obvious scraping user agents.
func (r *RateLimiter) AntiBotCheck() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return apis.NewForbiddenError("Access denied", nil)
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
