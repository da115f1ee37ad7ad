package httpapi

import (
	"net/http"

	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
	"github.com/jw6ventures/gcalsync/internal/oauthflow"
	"github.com/jw6ventures/gcalsync/internal/session"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/token"
)

type authHandlers struct {
	orchestrator *oauthflow.Orchestrator
	tokens       *token.Manager
	sessions     *session.Manager
	users        store.UserRepository
}

// beginOAuth initiates the authorization-code flow: GET /auth/google.
func (h *authHandlers) beginOAuth(w http.ResponseWriter, r *http.Request) {
	url, err := h.orchestrator.Initiate(r.Context(), w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// callback consumes the authorization code: GET /auth/google/callback.
func (h *authHandlers) callback(w http.ResponseWriter, r *http.Request) {
	redirectURL, err := h.orchestrator.Callback(r.Context(), w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// refresh forces a token refresh for the current session and rotates the
// session cookie: POST /auth/refresh.
func (h *authHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		apierr.Respond(w, r, apierr.KindUnauthenticated, nil, "")
		return
	}

	if _, err := h.tokens.Refresh(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	sessionToken, err := h.sessions.Mint(user.ID, user.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.sessions.SetCookie(w, sessionToken)

	respondOK(w, http.StatusOK, nil, "token refreshed")
}

// logout revokes the upstream credential and clears the session cookie:
// POST /auth/logout.
func (h *authHandlers) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		apierr.Respond(w, r, apierr.KindUnauthenticated, nil, "")
		return
	}

	if err := h.tokens.Revoke(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	h.sessions.ClearCookie(w)

	respondOK(w, http.StatusOK, nil, "logged out")
}

// me returns the current user's profile: GET /auth/me.
func (h *authHandlers) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		apierr.Respond(w, r, apierr.KindUnauthenticated, nil, "")
		return
	}
	respondOK(w, http.StatusOK, toUserDTO(user), "")
}

type statusResponse struct {
	Authenticated bool     `json:"authenticated"`
	User          *userDTO `json:"user,omitempty"`
}

// status reports whether the caller has a valid session, without failing
// when they don't: GET /auth/status.
func (h *authHandlers) status(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.FromRequest(r)
	if err != nil {
		respondOK(w, http.StatusOK, statusResponse{Authenticated: false}, "")
		return
	}
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondOK(w, http.StatusOK, statusResponse{Authenticated: false}, "")
		return
	}
	dto := toUserDTO(user)
	respondOK(w, http.StatusOK, statusResponse{Authenticated: true, User: &dto}, "")
}
