package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/config"
	"github.com/ethpandaops/topicnav/internal/ratelimit"
)

type compiledRule struct {
	name    string
	method  string
	pattern *regexp.Regexp
	limit   int
	window  time.Duration
}

func (r *compiledRule) matches(req *http.Request) bool {
	if r.method != "" && r.method != req.Method {
		return false
	}

	return r.pattern.MatchString(req.URL.Path)
}

// RateLimit returns a middleware that enforces the configured rules. The
// first rule matching method and path applies; requests matching no rule and
// requests from exempt addresses pass through. The config is expected to be
// validated.
func RateLimit(
	log logrus.FieldLogger,
	cfg config.RateLimitingConfig,
	limiter ratelimit.Service,
) func(http.Handler) http.Handler {
	log = log.WithField("component", "ratelimit")

	rules := make([]compiledRule, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		rules[i] = compiledRule{
			name:    rule.Name,
			method:  strings.ToUpper(rule.Method),
			pattern: regexp.MustCompile(rule.PathPattern),
			limit:   rule.Limit,
			window:  rule.Window,
		}
	}

	exempt := make([]netip.Prefix, 0, len(cfg.ExemptIPs))

	for _, entry := range cfg.ExemptIPs {
		if prefix, err := config.ParsePrefix(entry); err == nil {
			exempt = append(exempt, prefix)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if isExempt(ip, exempt) {
				next.ServeHTTP(w, r)

				return
			}

			rule := findMatchingRule(r, rules)
			if rule == nil {
				next.ServeHTTP(w, r)

				return
			}

			decision, err := limiter.Allow(r.Context(), ip, rule.name, rule.limit, rule.window)
			if err != nil {
				rateLimitErrorsTotal.WithLabelValues(rule.name).Inc()

				log.WithError(err).WithFields(logrus.Fields{
					"ip":   ip,
					"path": r.URL.Path,
					"rule": rule.name,
				}).Error("Rate limit check failed")

				if !decision.Allowed {
					writeRateLimitError(w, http.StatusServiceUnavailable, "rate limiter unavailable", 0)

					return
				}

				next.ServeHTTP(w, r)

				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				rateLimitDeniedTotal.WithLabelValues(rule.name).Inc()

				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter <= 0 {
					retryAfter = max(int(rule.window.Seconds()), 1)
				}

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeRateLimitError(w, http.StatusTooManyRequests, "rate limit exceeded", retryAfter)

				log.WithFields(logrus.Fields{
					"ip":          ip,
					"path":        r.URL.Path,
					"rule":        rule.name,
					"retry_after": retryAfter,
				}).Warn("Rate limit exceeded")

				return
			}

			rateLimitAllowedTotal.WithLabelValues(rule.name).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address from the request.
// Priority: CF-Connecting-IP > X-Forwarded-For (first hop) > X-Real-IP > RemoteAddr.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func isExempt(ip string, exempt []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	for _, prefix := range exempt {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

func findMatchingRule(r *http.Request, rules []compiledRule) *compiledRule {
	for i := range rules {
		if rules[i].matches(r) {
			return &rules[i]
		}
	}

	return nil
}

func writeRateLimitError(w http.ResponseWriter, status int, message string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"error":  message,
		"status": status,
	}

	if retryAfter > 0 {
		response["retry_after"] = retryAfter
	}

	_ = json.NewEncoder(w).Encode(response)
}
