package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers to responses.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		// Cache preflight results for a day to reduce OPTIONS traffic
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next(rw, r)
		duration := time.Since(start)

		// Record metrics
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	}
}

// rateLimitMiddleware enforces rate limiting and quotas.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip rate limiting if not configured
		if s.rateLimiter == nil {
			next(w, r)
			return
		}

		// Get user identifier (IP address for now, could be extended to use API keys)
		userID := getClientIP(r)

		// The daily quota counts screenshots, not bytes: peek at the /run
		// request body's paths list without consuming it, so the handler
		// still sees a fresh, unread body.
		screenshotCount := int64(s.peekScreenshotCount(r))

		// Check rate limits
		if err := s.rateLimiter.CheckRateLimit(userID, screenshotCount); err != nil {
			// Record rate limit hit
			{
				var e *RateLimitError
				var e1 *QuotaExceededError
				switch {
				case errors.As(err, &e):
					rateLimitHits.WithLabelValues(e.Type).Inc()
				case errors.As(err, &e1):
					rateLimitHits.WithLabelValues(e1.Type).Inc()
				}
			}
			s.handleRateLimitError(w, err)
			return
		}

		next(w, r)
	}
}

// handleRateLimitError handles rate limit and quota errors.
func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	{
		var e *RateLimitError
		var e1 *QuotaExceededError
		switch {
		case errors.As(err, &e):
			w.Header().Set("X-RateLimit-Type", e.Type)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(e.Limit))
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", e.RetryAfter.Seconds()))
			w.WriteHeader(http.StatusTooManyRequests)
			response := map[string]interface{}{"error": "rate_limit_exceeded", "type": e.Type, "limit": e.Limit, "retry_after": e.RetryAfter.Seconds(), "message": e.Error()}
			if err := json.NewEncoder(w).Encode(response); err != nil {
				slog.Error("Failed to encode rate limit response", "error", err)
			}
		case errors.As(err, &e1):
			w.Header().Set("X-Quota-Type", e1.Type)
			w.Header().Set("X-Quota-Limit", strconv.FormatInt(e1.Limit, 10))
			w.Header().Set("X-Quota-Used", strconv.FormatInt(e1.Used, 10))
			w.Header().Set("X-Quota-Resets", e1.Resets.Format(http.TimeFormat))
			w.WriteHeader(http.StatusTooManyRequests)
			response := map[string]interface{}{"error": "quota_exceeded", "type": e1.Type, "limit": e1.Limit, "used": e1.Used, "resets": e1.Resets.Format(time.RFC3339), "message": e1.Error()}
			if err := json.NewEncoder(w).Encode(response); err != nil {
				slog.Error("Failed to encode quota exceeded response", "error", err)
			}
		default:
			w.WriteHeader(http.StatusInternalServerError)
			if err := json.NewEncoder(w).Encode(map[string]string{"error": "internal_error", "message": "Rate limiting check failed"}); err != nil {
				slog.Error("Failed to encode internal error response", "error", err)
			}
		}
	}
}

// peekScreenshotCount reads r's body to count the requested runRequest's
// paths, then restores it so the handler downstream can still decode it.
// Returns 1 for anything that isn't a well-formed /run body (GET requests,
// malformed JSON), so non-batch endpoints still count as a single unit of
// work against the daily quota.
func (s *Server) peekScreenshotCount(r *http.Request) int {
	if r.Method != http.MethodPost || r.Body == nil {
		return 1
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return 1
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var req runRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Paths) == 0 {
		return 1
	}
	return len(req.Paths)
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies/load balancers)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
