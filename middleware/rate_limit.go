package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimiter applies a fixed-window request cap per client IP. Windows are
// tracked in memory, which is fine for a single-process deployment.
type RateLimiter struct {
	limit   int
	window  time.Duration
	message string

	mu      sync.Mutex
	windows map[string]*requestWindow
}

type requestWindow struct {
	hits    int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration, message string) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		message: message,
		windows: make(map[string]*requestWindow),
	}
	go rl.sweep()
	return rl
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.message)
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &requestWindow{hits: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if w.hits >= rl.limit {
		return false
	}
	w.hits++
	return true
}

// sweep drops expired windows so the map does not grow unbounded.
func (rl *RateLimiter) sweep() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		now := time.Now()
		for key, w := range rl.windows {
			if now.After(w.resetAt) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// LoginRateLimiter caps staff login attempts at 5 per minute per IP.
var LoginRateLimiter = NewRateLimiter(5, time.Minute,
	"Too many login attempts. Please wait a minute before trying again.")

// MagicLinkRateLimiter caps applicant access link requests at 3 per hour per IP.
var MagicLinkRateLimiter = NewRateLimiter(3, time.Hour,
	"Too many access link requests. Please try again later.")

// PublicFormRateLimiter caps public zakat applications at 10 per minute per IP.
var PublicFormRateLimiter = NewRateLimiter(10, time.Minute,
	"Too many form submissions. Please wait before trying again.")

// APIRateLimiter caps authenticated API traffic at 60 per minute per IP.
var APIRateLimiter = NewRateLimiter(60, time.Minute,
	"Rate limit exceeded. Please slow down your requests.")
