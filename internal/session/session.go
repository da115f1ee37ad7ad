// Package session issues and verifies the signed JWT bearer carried in the
// post-authentication session cookie.
package session

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "calendar-app"
	audience   = "calendar-users"
	CookieName = "auth_token"
	defaultTTL = 7 * 24 * time.Hour
)

// DefaultTTL is the session lifetime New falls back to when ttl is zero.
const DefaultTTL = defaultTTL

// ErrInvalidToken is returned for any unparseable, expired, or otherwise
// untrusted session token.
var ErrInvalidToken = errors.New("session: invalid token")

// Claims is the payload carried by the session bearer.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager mints and verifies session tokens and sets/clears them as an
// HTTP-only cookie.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	domain string
}

// New builds a session Manager. The cookie's Secure flag follows baseURL's
// scheme: it is set unless baseURL parses with a scheme other than https,
// so callers pass cfg.BaseURL directly. The deployment environment is not
// consulted. A zero ttl falls back to DefaultTTL.
func New(secret string, baseURL, cookieDomain string, ttl time.Duration) *Manager {
	secure := true
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "https" {
		secure = false
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, domain: cookieDomain}
}

// Mint produces a signed session token for userID/email.
func (m *Manager) Mint(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies a session token's signature, issuer, audience, and expiry.
func (m *Manager) Parse(raw string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// SetCookie writes the session token as an HTTP-only, SameSite=Lax cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.domain,
		Expires:  time.Now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie immediately.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts and verifies the session cookie, if present.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return m.Parse(c.Value)
}
