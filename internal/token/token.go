// Package token is the Token Manager: wraps/unwraps stored OAuth credentials
// via the Credential Vault, refreshes access tokens through the Retry
// Executor, and is the canonical pre-flight for every outbound upstream call.
package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/vault"
)

// expiryBuffer is how far ahead of expiry ensureValid proactively refreshes.
const expiryBuffer = 5 * time.Minute

var (
	// ErrUnauthenticated means the user has no stored credential at all.
	ErrUnauthenticated = errors.New("token: unauthenticated")
	// ErrNoRefreshToken means a refresh was attempted with nothing to refresh with.
	ErrNoRefreshToken = errors.New("token: no refresh token available")
)

// Tokens is an unwrapped, in-memory credential pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Manager implements store/refresh/ensureValid/revoke over a per-user
// single-flighted refresh path.
type Manager struct {
	users       store.UserRepository
	vault       *vault.Vault
	oauthConfig *oauth2.Config
	retryExec   *retry.Executor

	sf singleflight.Group
}

// New wires a Token Manager. oauthConfig supplies the client id/secret and
// token endpoint used to redeem refresh tokens.
func New(users store.UserRepository, v *vault.Vault, oauthConfig *oauth2.Config, retryExec *retry.Executor) *Manager {
	return &Manager{users: users, vault: v, oauthConfig: oauthConfig, retryExec: retryExec}
}

// Store wraps and persists a fresh credential pair for userID.
func (m *Manager) Store(ctx context.Context, userID string, tokens Tokens) error {
	wrappedAccess, err := m.vault.Wrap(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("wrap access token: %w", err)
	}
	wrappedRefresh, err := m.vault.Wrap(tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("wrap refresh token: %w", err)
	}
	return m.users.UpdateTokens(ctx, userID, wrappedAccess, wrappedRefresh, tokens.Expiry)
}

// Load reads and unwraps the stored credential. Returns ErrUnauthenticated
// when no access token has ever been stored for this user.
func (m *Manager) Load(ctx context.Context, userID string) (*Tokens, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.WrappedAccessToken == "" {
		return nil, ErrUnauthenticated
	}
	access, err := m.vault.Unwrap(user.WrappedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("unwrap access token: %w", err)
	}
	var refresh string
	if user.WrappedRefreshToken != "" {
		refresh, err = m.vault.Unwrap(user.WrappedRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("unwrap refresh token: %w", err)
		}
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, Expiry: user.AccessTokenExpiry}, nil
}

// Refresh redeems the stored refresh token for a new access token through
// the Retry Executor. Concurrent callers for the same user share a single
// in-flight refresh; if another refresh already landed a newer token by the
// time this one completes, that newer token is returned instead of
// overwriting it with a stale result.
func (m *Manager) Refresh(ctx context.Context, userID string) (*Tokens, error) {
	v, err, _ := m.sf.Do(userID, func() (any, error) {
		return m.refreshLocked(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tokens), nil
}

func (m *Manager) refreshLocked(ctx context.Context, userID string) (*Tokens, error) {
	current, err := m.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	src := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
	refreshed, err := retry.Execute(ctx, m.retryExec, "token.refresh", retry.DefaultPolicy(), func(ctx context.Context) (*oauth2.Token, error) {
		return src.Token()
	})
	if err != nil {
		return nil, err
	}

	latest, err := m.Load(ctx, userID)
	if err == nil && !latest.Expiry.Equal(current.Expiry) {
		log.Printf("[INFO] token: discarding refresh result for user=%s, a newer credential is already stored", userID)
		return latest, nil
	}

	refreshToken := refreshed.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}
	result := &Tokens{AccessToken: refreshed.AccessToken, RefreshToken: refreshToken, Expiry: refreshed.Expiry}
	if err := m.Store(ctx, userID, *result); err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureValid is the canonical pre-flight for every outbound upstream call:
// it loads the stored credential, refreshing first if its expiry falls
// within the buffer window, and returns a live access token.
func (m *Manager) EnsureValid(ctx context.Context, userID string) (string, error) {
	tokens, err := m.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if time.Now().Add(expiryBuffer).After(tokens.Expiry) {
		tokens, err = m.Refresh(ctx, userID)
		if err != nil {
			return "", err
		}
	}
	return tokens.AccessToken, nil
}

// Revoke attempts upstream revocation on a best-effort basis (warnings on
// failure) and unconditionally clears the stored credential.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	tokens, err := m.Load(ctx, userID)
	if err == nil && tokens.AccessToken != "" {
		if revokeErr := revokeUpstream(ctx, tokens.AccessToken); revokeErr != nil {
			log.Printf("[WARN] token: upstream revoke failed for user=%s: %v", userID, revokeErr)
		}
	}
	return m.users.ClearTokens(ctx, userID)
}
