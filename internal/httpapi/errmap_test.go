package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jw6ventures/gcalsync/internal/eventstore"
	"github.com/jw6ventures/gcalsync/internal/oauthflow"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
	"github.com/jw6ventures/gcalsync/internal/token"
)

func TestWriteErrorMapsKnownSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid event", fmt.Errorf("wrap: %w", eventstore.ErrInvalidEvent), http.StatusBadRequest},
		{"not found", fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("wrap: %w", store.ErrConflict), http.StatusConflict},
		{"sync already running", sync.ErrAlreadyRunning, http.StatusConflict},
		{"unauthenticated", token.ErrUnauthenticated, http.StatusUnauthorized},
		{"no refresh token", token.ErrNoRefreshToken, http.StatusUnauthorized},
		{"invalid oauth state", oauthflow.ErrInvalidState, http.StatusBadRequest},
		{"upstream exchange failure", oauthflow.ErrUpstreamExchange, http.StatusUnauthorized},
		{"unclassified error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			writeError(w, req, tc.err)

			if w.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}

func TestWriteClassifiedMapsRetryKinds(t *testing.T) {
	tests := []struct {
		name       string
		kind       retry.Kind
		wantStatus int
	}{
		{"rate limited", retry.KindRateLimited, http.StatusBadGateway},
		{"quota exceeded", retry.KindQuotaExceeded, http.StatusInternalServerError},
		{"auth failed", retry.KindAuthFailed, http.StatusUnauthorized},
		{"network", retry.KindNetwork, http.StatusBadGateway},
		{"other", retry.KindOther, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classified := &retry.ClassifiedError{Kind: tc.kind, Err: fmt.Errorf("upstream failure")}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			writeError(w, req, classified)

			if w.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}
