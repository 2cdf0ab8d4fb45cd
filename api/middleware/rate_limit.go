package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sonaskin/storefront-backend/api/responses"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const maxPeekBytes = 1 << 16

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// rateRule counts requests under one key. key returns "" to skip the rule.
type rateRule struct {
	dimension string
	limit     int
	key       func(r *http.Request, body []byte) string
	needsBody bool
}

// RateLimitPolicy is a named set of fixed-window counters sharing one window.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []rateRule
}

// LoginRateLimitPolicy counts sign-in attempts per client IP and per email.
// Emails are hashed before they become part of a Redis key.
func LoginRateLimitPolicy(window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:   "login",
		window: window,
		rules: []rateRule{
			{dimension: "ip", limit: ipLimit, key: func(r *http.Request, _ []byte) string { return clientIP(r) }},
			{dimension: "email", limit: emailLimit, key: emailKey, needsBody: true},
		},
	}
}

// IPRateLimitPolicy caps anonymous writes such as reviews and orders per client IP.
func IPRateLimitPolicy(name string, limit int, window time.Duration) RateLimitPolicy {
	return RateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		rules: []rateRule{
			{dimension: "ip", limit: limit, key: func(r *http.Request, _ []byte) string { return clientIP(r) }},
		},
	}
}

func (p RateLimitPolicy) active() []rateRule {
	if p.window <= 0 {
		return nil
	}
	var rules []rateRule
	for _, rule := range p.rules {
		if rule.limit > 0 {
			rules = append(rules, rule)
		}
	}
	return rules
}

// RateLimit rejects requests over any of the policy's counters with 429 and
// a Retry-After hint. Without a store the policy is not enforced.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := policy.active()
	return func(next http.Handler) http.Handler {
		if store == nil || len(rules) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var body []byte
			for _, rule := range rules {
				if rule.needsBody && body == nil {
					peeked, err := peekBody(r)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
						return
					}
					body = peeked
				}
				key := rule.key(r, body)
				if key == "" {
					continue
				}
				scope := rule.dimension + ":" + policy.name + ":" + key
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(rule.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.name,
							"dimension": rule.dimension,
							"attempts":  count,
							"limit":     rule.limit,
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Bạn thao tác quá nhanh, vui lòng thử lại sau"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekBody reads the body and puts it back for the handler.
func peekBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func emailKey(_ *http.Request, body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// clientIP trusts the first X-Forwarded-For hop; the API sits behind one proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
