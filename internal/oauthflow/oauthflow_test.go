package oauthflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/token"
)

type fakeStates struct {
	rows map[string]store.OAuthState
}

func newFakeStates() *fakeStates { return &fakeStates{rows: map[string]store.OAuthState{}} }

func (f *fakeStates) Create(ctx context.Context, state store.OAuthState) error {
	f.rows[state.State] = state
	return nil
}

func (f *fakeStates) Consume(ctx context.Context, state string) (*store.OAuthState, error) {
	s, ok := f.rows[state]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	delete(f.rows, state)
	return &s, nil
}

func (f *fakeStates) GC(ctx context.Context, before time.Time) (int, error) { return 0, nil }

type fakeUsers struct {
	byUpstreamID map[string]store.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byUpstreamID: map[string]store.User{}} }

func (f *fakeUsers) UpsertFromOAuth(ctx context.Context, upstreamUserID, email, displayName, pictureURL string) (*store.User, error) {
	u, ok := f.byUpstreamID[upstreamUserID]
	if !ok {
		u = store.User{ID: "local-" + upstreamUserID, UpstreamUserID: &upstreamUserID}
	}
	u.Email = email
	u.DisplayName = displayName
	u.PictureURL = pictureURL
	f.byUpstreamID[upstreamUserID] = u
	return &u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*store.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) GetByUpstreamID(ctx context.Context, upstreamID string) (*store.User, error) {
	u, ok := f.byUpstreamID[upstreamID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) UpdateTokens(ctx context.Context, userID, wrappedAccessToken, wrappedRefreshToken string, expiry time.Time) error {
	return nil
}

func (f *fakeUsers) ClearTokens(ctx context.Context, userID string) error { return nil }

type fakeTokens struct {
	stored map[string]token.Tokens
}

func newFakeTokens() *fakeTokens { return &fakeTokens{stored: map[string]token.Tokens{}} }

func (f *fakeTokens) Load(ctx context.Context, userID string) (*token.Tokens, error) {
	t, ok := f.stored[userID]
	if !ok {
		return nil, token.ErrUnauthenticated
	}
	return &t, nil
}

func (f *fakeTokens) Store(ctx context.Context, userID string, tokens token.Tokens) error {
	f.stored[userID] = tokens
	return nil
}

type fakeSessions struct {
	minted map[string]string
}

func newFakeSessions() *fakeSessions { return &fakeSessions{minted: map[string]string{}} }

func (f *fakeSessions) Mint(userID, email string) (string, error) {
	f.minted[userID] = email
	return "session-for-" + userID, nil
}

func (f *fakeSessions) SetCookie(w http.ResponseWriter, tok string) {
	http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: tok})
}

func newTestOrchestrator(t *testing.T, tokenURL string) (*Orchestrator, *fakeStates, *fakeUsers, *fakeTokens, *fakeSessions) {
	t.Helper()
	states := newFakeStates()
	users := newFakeUsers()
	tokens := newFakeTokens()
	sessions := newFakeSessions()

	o := New(Config{ClientID: "client-id", ClientSecret: "client-secret", RedirectURL: "https://app.example.com/oauth/callback"},
		"cookie-secret", "https://app.example.com/synced", true, states, users, tokens, sessions)
	o.oauthCfg.Endpoint.TokenURL = tokenURL
	return o, states, users, tokens, sessions
}

func TestInitiateSetsStateCookieAndRedirectURL(t *testing.T) {
	o, states, _, _, _ := newTestOrchestrator(t, "")
	w := httptest.NewRecorder()

	redirectURL, err := o.Initiate(context.Background(), w)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	u, err := url.Parse(redirectURL)
	if err != nil {
		t.Fatalf("parse redirect url: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state query param in redirect url")
	}
	if _, ok := states.rows[state]; !ok {
		t.Errorf("expected state to be persisted")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != stateCookieName {
		t.Fatalf("expected exactly one state cookie, got %v", cookies)
	}
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t, "")
	w := httptest.NewRecorder()
	_, _ = o.Initiate(context.Background(), w)
	cookie := w.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodGet, "/oauth/callback?state=wrong-state&code=abc", nil)
	r.AddCookie(cookie)

	_, err := o.Callback(context.Background(), httptest.NewRecorder(), r)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCallbackHappyPath(t *testing.T) {
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(googleUserInfo{ID: "google-123", Email: "user@example.com", Name: "Test User"})
	}))
	defer userInfoServer.Close()
	googleUserInfoEndpoint = userInfoServer.URL

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token-value",
			"refresh_token": "refresh-token-value",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	o, _, users, tokens, sessions := newTestOrchestrator(t, tokenServer.URL)

	initW := httptest.NewRecorder()
	redirectURL, err := o.Initiate(context.Background(), initW)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	state := mustQueryParam(t, redirectURL, "state")
	cookie := initW.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodGet, "/oauth/callback?state="+state+"&code=auth-code", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()

	dest, err := o.Callback(context.Background(), w, r)
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if dest != "https://app.example.com/synced" {
		t.Errorf("unexpected redirect destination: %s", dest)
	}

	user, ok := users.byUpstreamID["google-123"]
	if !ok {
		t.Fatalf("expected user to be upserted")
	}
	if user.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", user.Email)
	}
	if tokens.stored[user.ID].AccessToken != "access-token-value" {
		t.Errorf("expected access token to be stored")
	}
	if _, ok := sessions.minted[user.ID]; !ok {
		t.Errorf("expected session to be minted for user")
	}
}

func mustQueryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.Query().Get(key)
}
