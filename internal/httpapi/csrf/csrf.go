// Package csrf implements a double-submit-cookie CSRF check for the
// mutating calendar/auth routes that sit behind the session cookie (spec
// §6's POST/PUT/DELETE routes). It only needs to understand JSON requests:
// this API has no HTML form endpoint, so unlike a cookie-issuing web app
// there is no form-field fallback to support.
package csrf

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/jw6ventures/gcalsync/internal/config"
	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
)

type contextKey struct{}

const (
	cookieName = "auth_csrf"
	headerName = "X-CSRF-Token"
)

// Middleware issues a CSRF token cookie on first contact and, on the
// POST/PUT/DELETE routes this service actually exposes, requires the same
// token echoed back in the X-CSRF-Token header.
func Middleware(cfg *config.Config) func(http.Handler) http.Handler {
	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := currentToken(r)
			if !ok {
				var err error
				token, err = generateToken()
				if err != nil {
					apierr.Respond(w, r, apierr.KindInternal, err, "failed to issue csrf token")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if isMutating(r.Method) {
				provided := r.Header.Get(headerName)
				if provided == "" || provided != token {
					apierr.Respond(w, r, apierr.KindValidation, nil, "missing or mismatched csrf token")
					return
				}
			}

			ctx := context.WithValue(r.Context(), contextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func currentToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// TokenFromContext returns the CSRF token associated with the request, for
// handlers that need to echo it back to the client.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return ""
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// isMutating reports whether method is one of the three mutating verbs this
// service's routes actually use (POST, PUT, DELETE — spec §6 has no PATCH
// route anywhere in the surface).
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
