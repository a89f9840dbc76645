// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/utils"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

// RateLimiter is a per-IP token bucket with stricter buckets for sensitive
// endpoints. It sits in front of the per-identifier issuance limit. An
// exhausted bucket blocks only its own key: the strict endpoint for that IP,
// or the IP's general routes.
type RateLimiter struct {
	limiters       map[string]*rate.Limiter
	blocked        map[string]time.Time
	mu             sync.Mutex
	defaultLimit   endpointLimit
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	stop           chan struct{}
	now            func() time.Time
}

func NewRateLimiter() *RateLimiter {
	limiter := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		blocked:       make(map[string]time.Time),
		defaultLimit:  endpointLimit{limit: rate.Every(100 * time.Millisecond), burst: 20}, // 10 requests per second
		blockDuration: 5 * time.Minute,
		endpointLimits: map[string]endpointLimit{
			// Code issuance is also limited per identifier; this bounds one IP cycling identifiers
			"/api/otp/send":       {limit: rate.Every(10 * time.Second), burst: 5},
			"/api/otp/verify":     {limit: rate.Every(2 * time.Second), burst: 10},
			"/api/users/register": {limit: rate.Every(5 * time.Second), burst: 5},
		},
		stop: make(chan struct{}),
		now:  time.Now,
	}

	go limiter.cleanupLoop(time.Hour)

	return limiter
}

// Stop ends the cleanup goroutine.
func (r *RateLimiter) Stop() {
	close(r.stop)
}

func (r *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, blockUntil := range r.blocked {
		if now.After(blockUntil) {
			delete(r.blocked, key)
		}
	}
	// idle buckets refill to full, so dropping them loses nothing
	for key, l := range r.limiters {
		if l.TokensAt(now) >= float64(l.Burst()) {
			delete(r.limiters, key)
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Exclude /uploads path from rate limiting
			if strings.HasPrefix(c.Request().URL.Path, utils.UploadsURLPrefix+"/") {
				return next(c)
			}

			ip := c.RealIP()
			now := r.now()

			path := c.Path()
			cfg, strict := r.endpointLimits[path]
			key := ip
			if strict {
				key = ip + "|" + path
			} else {
				cfg = r.defaultLimit
			}

			r.mu.Lock()
			if blockUntil, blocked := r.blocked[key]; blocked {
				if now.Before(blockUntil) {
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil.Sub(now))
				}
				delete(r.blocked, key)
			}

			limiter, exists := r.limiters[key]
			if !exists {
				limiter = rate.NewLimiter(cfg.limit, cfg.burst)
				r.limiters[key] = limiter
			}

			if !limiter.AllowN(now, 1) {
				r.blocked[key] = now.Add(r.blockDuration)
				r.mu.Unlock()
				utils.Logger.WithField("ip", ip).WithField("path", path).Warn("Blocked for exceeding request rate")
				return tooManyRequests(c, r.blockDuration)
			}
			r.mu.Unlock()

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter time.Duration) error {
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:            http.StatusTooManyRequests,
		Message:           "Too many requests",
		Kind:              "rate_limited",
		RetryAfterSeconds: int(retryAfter.Seconds()),
	})
}
