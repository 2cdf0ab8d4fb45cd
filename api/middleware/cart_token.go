package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/sonaskin/storefront-backend/api/responses"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/security"
)

// CartCookieName is the cookie that identifies an anonymous shopper's cart.
const CartCookieName = "cart_token"

const cartTokenBytes = 24

var cartTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// CartTokenOptions configure the cart cookie.
type CartTokenOptions struct {
	TTL    time.Duration
	Secure bool
}

// CartToken resolves the shopper's cart token from its cookie, issuing a new one when absent or malformed.
func CartToken(opts CartTokenOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(CartCookieName); err == nil && cartTokenPattern.MatchString(cookie.Value) {
				token = cookie.Value
			}
			if token == "" {
				issued, err := security.RandomToken(cartTokenBytes)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue cart token"))
					return
				}
				token = issued
			}
			// refresh the expiry on every visit
			http.SetCookie(w, &http.Cookie{
				Name:     CartCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(opts.TTL / time.Second),
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(WithCartToken(r.Context(), token)))
		})
	}
}
