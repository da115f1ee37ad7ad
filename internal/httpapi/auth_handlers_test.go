package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jw6ventures/gcalsync/internal/session"
	"github.com/jw6ventures/gcalsync/internal/store"
)

func TestStatusReportsUnauthenticatedWithoutCookie(t *testing.T) {
	sessions := session.New("test-secret-test-secret-test-secret", "http://localhost:8080", "", 0)
	h := &authHandlers{sessions: sessions, users: newFakeUsers()}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	w := httptest.NewRecorder()

	h.status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status should never error, got %d", w.Code)
	}
	var resp struct {
		Data statusResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Authenticated {
		t.Error("expected authenticated=false without a session cookie")
	}
}

func TestStatusReportsAuthenticatedForValidSession(t *testing.T) {
	sessions := session.New("test-secret-test-secret-test-secret", "http://localhost:8080", "", 0)
	users := newFakeUsers()
	users.rows["user-1"] = store.User{ID: "user-1", Email: "a@example.com", DisplayName: "A"}
	h := &authHandlers{sessions: sessions, users: users}

	token, err := sessions.Mint("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	w := httptest.NewRecorder()

	h.status(w, req)

	var resp struct {
		Data statusResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data.Authenticated || resp.Data.User == nil || resp.Data.User.ID != "user-1" {
		t.Fatalf("expected authenticated user-1, got %+v", resp.Data)
	}
}

func TestMeRequiresAttachedUser(t *testing.T) {
	h := &authHandlers{}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no user is attached to the request, got %d", w.Code)
	}
}

func TestMeReturnsAttachedUser(t *testing.T) {
	h := &authHandlers{}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(withUser(req.Context(), &store.User{ID: "user-1", Email: "a@example.com"}))
	w := httptest.NewRecorder()

	h.me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data userDTO `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ID != "user-1" {
		t.Errorf("expected user-1, got %s", resp.Data.ID)
	}
}
