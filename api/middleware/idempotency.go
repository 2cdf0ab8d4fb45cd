package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sonaskin/storefront-backend/api/responses"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"

	orderReplayTTL  = 7 * 24 * time.Hour
	writeReplayTTL  = 24 * time.Hour
	inFlightTTL     = 30 * time.Second
	maxIdemKeyLen   = 128
	maxIdemBodySize = 1 << 20
)

// replayTTL picks how long a finished response stays replayable for a
// route; false means the route is not covered.
func replayTTL(method, pattern string) (time.Duration, bool) {
	if method != http.MethodPost {
		return 0, false
	}
	switch {
	case pattern == "/api/checkout", pattern == "/api/orders":
		return orderReplayTTL, true
	case pattern == "/api/reviews", strings.HasPrefix(pattern, "/api/admin/"):
		return writeReplayTTL, true
	}
	return 0, false
}

// IdempotencyStore is the Redis surface holding in-flight claims and replay records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// replayRecord is what sits under an idempotency key. A record without a
// status is a claim by a request that has not finished yet.
type replayRecord struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        string `json:"body,omitempty"`
}

func (r replayRecord) done() bool { return r.Status != 0 }

// Idempotency makes retried order placements and admin writes safe. The
// first request with a given Idempotency-Key claims it; a duplicate that
// arrives while the first is running gets 409, and one that arrives later
// gets the stored response. Reusing a key with a different body is a 409.
// 5xx outcomes release the claim so the client can retry.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, covered := replayTTL(r.Method, routePattern(r))
			if store == nil || !covered || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdemKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.Invalid(pkgerrors.FieldErrors{idempotencyHeader: "must be at most 128 characters"}))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdemBodySize))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fp := fingerprint(body)
			key := store.IdempotencyKey(replayScope(r), clientKey)
			claim, _ := json.Marshal(replayRecord{Fingerprint: fp})

			claimed, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, w, store, key, fp, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency claim", err)
				}
				return
			}
			record := replayRecord{
				Fingerprint: fp,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
			}
			payload, _ := json.Marshal(record)
			if err := store.Set(ctx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, w http.ResponseWriter, store IdempotencyStore, key, fp string, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if redis.IsNil(err) {
		// the claim expired between SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "Yêu cầu đang được xử lý, vui lòng thử lại"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.Fingerprint != fp:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "Idempotency-Key đã được dùng cho một yêu cầu khác"))
	case !record.done():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "Yêu cầu đang được xử lý, vui lòng thử lại"))
	default:
		body, _ := base64.StdEncoding.DecodeString(record.Body)
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(body)
	}
}

// replayScope keys records per admin user, or per cart for storefront calls.
func replayScope(r *http.Request) string {
	owner := UserIDFromContext(r.Context())
	if owner == "" {
		owner = CartTokenFromContext(r.Context())
	}
	return owner + "|" + r.Method + "|" + r.URL.Path
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// responseCapture tees the downstream response so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
