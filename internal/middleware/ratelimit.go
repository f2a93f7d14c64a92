package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/technosupport/zoneguard/internal/ratelimit"
)

// RateLimit guards the Metrics API's public streaming surfaces
// (/realtime/stream, /video/stream/{camera_id}) against a single client
// opening an unbounded number of long-lived connections — the same
// per-IP fixed-window check the VMS backend applies ahead of its own
// public routes, minus the JWT/internal-service bypass this pipeline has
// no use for.
type RateLimit struct {
	limiter *ratelimit.Limiter
	config  ratelimit.LimitConfig
}

func NewRateLimit(l *ratelimit.Limiter, cfg ratelimit.LimitConfig) *RateLimit {
	return &RateLimit{limiter: l, config: cfg}
}

func (m *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := strings.Split(r.RemoteAddr, ":")[0]
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ip = strings.Split(xff, ",")[0]
		}

		key := fmt.Sprintf("rl:stream:%s", m.limiter.HashIP(ip))
		decision, err := m.limiter.CheckRateLimit(r.Context(), key, m.config)
		if err != nil {
			// Fail open: refusing a streaming endpoint during a Redis
			// blip is worse than letting the request through unthrottled.
			log.Printf("[WARN] rate limiter unavailable, failing open: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
