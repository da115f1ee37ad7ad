package httpapi

import (
	"net/http"

	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
	"github.com/jw6ventures/gcalsync/internal/session"
	"github.com/jw6ventures/gcalsync/internal/store"
)

// requireSession verifies the session cookie minted by the OAuth
// Orchestrator, resolves the claimed user, and attaches it to the request
// context. A missing/invalid/expired cookie, or a claimed user that no
// longer exists, surfaces as unauthenticated per spec §7.
func requireSession(sessions *session.Manager, users store.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessions.FromRequest(r)
			if err != nil {
				apierr.Respond(w, r, apierr.KindUnauthenticated, err, "missing or invalid session")
				return
			}
			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				apierr.Respond(w, r, apierr.KindUnauthenticated, err, "session user no longer exists")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}
