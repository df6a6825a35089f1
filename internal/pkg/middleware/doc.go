// Package middleware provides HTTP middleware for the gauge server.
//
// Available middleware:
//   - RateLimiter: per-client token bucket, rejects with 429 and Retry-After
//   - RequestID: assigns or propagates X-Request-ID
//   - MaxBody: caps request body size
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
//	defer rl.Stop()
//	handler = middleware.RequestID(rl.Middleware(handler))
package middleware
