// Package oauthflow is the OAuth Orchestrator: drives the authorization-code
// flow end-to-end, from redirecting the caller to Google's consent screen
// through exchanging the code and issuing a local session.
package oauthflow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/token"
)

const (
	stateCookieName = "gcalsync_oauth_state"
	stateTTL        = 10 * time.Minute
)

// tokenStore is the subset of *token.Manager this package depends on.
type tokenStore interface {
	Load(ctx context.Context, userID string) (*token.Tokens, error)
	Store(ctx context.Context, userID string, tokens token.Tokens) error
}

// sessionIssuer is the subset of *session.Manager this package depends on.
type sessionIssuer interface {
	Mint(userID, email string) (string, error)
	SetCookie(w http.ResponseWriter, token string)
}

var scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
}

// Config holds the Google OAuth client credentials this orchestrator drives.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Orchestrator implements Initiate/Callback against a store-backed state
// nonce, the Token Manager, and session issuance.
type Orchestrator struct {
	oauthCfg    *oauth2.Config
	states      store.OAuthStateRepository
	users       store.UserRepository
	tokens      tokenStore
	sessions    sessionIssuer
	stateCodec  *securecookie.SecureCookie
	secure      bool
	frontendURL string
}

// New wires an Orchestrator. cookieSecret derives the pre-auth state
// cookie's seal key; this is deliberately a separate cookie/secret from the
// post-auth session, which is a signed JWT rather than a securecookie value.
func New(cfg Config, cookieSecret, frontendURL string, secure bool, states store.OAuthStateRepository, users store.UserRepository, tokens tokenStore, sessions sessionIssuer) *Orchestrator {
	hash := sha256.Sum256([]byte(cookieSecret))
	codec := securecookie.New(hash[:], hash[:])
	codec.MaxAge(int(stateTTL.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Orchestrator{
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		states:      states,
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
		stateCodec:  codec,
		secure:      secure,
		frontendURL: frontendURL,
	}
}

// Initiate generates a state nonce, persists it, stashes it in a pre-auth
// cookie, and returns the upstream authorization URL to redirect to.
func (o *Orchestrator) Initiate(ctx context.Context, w http.ResponseWriter) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	if err := o.states.Create(ctx, store.OAuthState{State: state, ExpiresAt: time.Now().Add(stateTTL)}); err != nil {
		return "", fmt.Errorf("persist oauth state: %w", err)
	}

	encoded, err := o.stateCodec.Encode(stateCookieName, map[string]string{"state": state})
	if err != nil {
		return "", fmt.Errorf("seal state cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  time.Now().Add(stateTTL),
		HttpOnly: true,
		Secure:   o.secure,
		SameSite: http.SameSiteLaxMode,
	})

	url := o.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	return url, nil
}

// Callback validates the returned state, exchanges the code, upserts the
// user, stores tokens, issues a session, and returns the URL to redirect
// the caller to on success.
func (o *Orchestrator) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	queryState := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if queryState == "" || code == "" {
		return "", ErrInvalidState
	}

	cookieState, err := o.readStateCookie(r)
	if err != nil || cookieState != queryState {
		return "", ErrInvalidState
	}
	clearCookie(w, o.secure)

	if _, err := o.states.Consume(ctx, queryState); err != nil {
		return "", ErrInvalidState
	}

	upstreamToken, err := o.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamExchange, err)
	}

	client := o.oauthCfg.Client(ctx, upstreamToken)
	info, err := fetchUserInfo(ctx, client)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamExchange, err)
	}

	user, err := o.users.UpsertFromOAuth(ctx, info.ID, info.Email, info.Name, info.Picture)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	refreshToken := upstreamToken.RefreshToken
	if refreshToken == "" {
		if existing, err := o.tokens.Load(ctx, user.ID); err == nil {
			refreshToken = existing.RefreshToken
		}
	}

	if err := o.tokens.Store(ctx, user.ID, token.Tokens{
		AccessToken:  upstreamToken.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       upstreamToken.Expiry,
	}); err != nil {
		return "", fmt.Errorf("store tokens: %w", err)
	}

	sessionToken, err := o.sessions.Mint(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("mint session: %w", err)
	}
	o.sessions.SetCookie(w, sessionToken)

	return o.frontendURL, nil
}

func (o *Orchestrator) readStateCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return "", err
	}
	var value map[string]string
	if err := o.stateCodec.Decode(stateCookieName, c.Value, &value); err != nil {
		return "", err
	}
	return value["state"], nil
}

func clearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
