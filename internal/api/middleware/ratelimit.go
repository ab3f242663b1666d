package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/aqexport/aqexport/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window.
	RequestLimit int
	// Window duration.
	WindowLength time.Duration
}

// TriggerRateLimit applies to the export trigger endpoint. Each trigger
// fans out to the measurement network, so the limit is strict.
var TriggerRateLimit = RateLimitConfig{
	RequestLimit: 6,
	WindowLength: time.Minute,
}

// RateLimitByIP creates a rate limiter middleware keyed by client IP.
// Uses X-Forwarded-For when present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	problem := models.NewTooManyRequests(GetRequestID(r.Context()))
	problem.Instance = r.URL.Path
	problem.Write(w)
}
