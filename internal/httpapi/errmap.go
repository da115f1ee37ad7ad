package httpapi

import (
	"errors"
	"net/http"

	"github.com/jw6ventures/gcalsync/internal/eventstore"
	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
	"github.com/jw6ventures/gcalsync/internal/oauthflow"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
	"github.com/jw6ventures/gcalsync/internal/token"
)

// writeError classifies err against the error taxonomy of spec §7 and
// renders the matching RFC7807 envelope. It is the single seam every
// handler in this package funnels failures through, so the taxonomy stays
// centralized instead of re-derived per handler.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, eventstore.ErrInvalidEvent):
		apierr.Respond(w, r, apierr.KindValidation, err, err.Error())
	case errors.Is(err, store.ErrNotFound):
		apierr.Respond(w, r, apierr.KindNotFound, err, "")
	case errors.Is(err, store.ErrConflict):
		apierr.Respond(w, r, apierr.KindConflict, err, "")
	case errors.Is(err, sync.ErrAlreadyRunning):
		apierr.Respond(w, r, apierr.KindAlreadyRunning, err, "a sync is already running for this user")
	case errors.Is(err, token.ErrUnauthenticated), errors.Is(err, token.ErrNoRefreshToken):
		apierr.Respond(w, r, apierr.KindUnauthenticated, err, "")
	case errors.Is(err, oauthflow.ErrInvalidState):
		apierr.Respond(w, r, apierr.KindValidation, err, "invalid or expired oauth state")
	case errors.Is(err, oauthflow.ErrUpstreamExchange):
		apierr.Respond(w, r, apierr.KindUnauthenticated, err, "upstream authorization failed")
	default:
		var classified *retry.ClassifiedError
		if errors.As(err, &classified) {
			writeClassified(w, r, classified)
			return
		}
		apierr.Respond(w, r, apierr.KindInternal, err, "")
	}
}

func writeClassified(w http.ResponseWriter, r *http.Request, classified *retry.ClassifiedError) {
	switch classified.Kind {
	case retry.KindRateLimited:
		apierr.Respond(w, r, apierr.KindUpstreamRateLimited, classified, "upstream rate limit exceeded; retry budget exhausted")
	case retry.KindQuotaExceeded:
		apierr.Respond(w, r, apierr.KindUpstreamQuotaExceeded, classified, "upstream daily quota exceeded")
	case retry.KindAuthFailed:
		apierr.Respond(w, r, apierr.KindUpstreamAuth, classified, "upstream rejected the access token")
	case retry.KindNetwork:
		apierr.Respond(w, r, apierr.KindUpstreamNetwork, classified, "upstream network error; retry budget exhausted")
	default:
		apierr.Respond(w, r, apierr.KindInternal, classified, "")
	}
}
