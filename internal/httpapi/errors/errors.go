// Package errors renders the service's caller-visible error taxonomy as
// RFC7807 problem-detail JSON bodies, and carries the teacher's
// request-id-prefixed logging helpers forward unchanged. HTTP presentation
// is named an external collaborator by the core spec, but the service still
// needs to log and still needs to answer callers with something, so this
// package is the thin seam between the two.
package errors

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Kind is the caller-visible error taxonomy, distinct from the HTTP status
// it is eventually rendered as.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindUnauthenticated       Kind = "unauthenticated"
	KindForbiddenResource     Kind = "forbidden-resource"
	KindNotFound              Kind = "not-found"
	KindUpstreamRateLimited   Kind = "upstream-rate-limited"
	KindUpstreamQuotaExceeded Kind = "upstream-quota-exceeded"
	KindUpstreamAuth          Kind = "upstream-auth"
	KindUpstreamNetwork       Kind = "upstream-network"
	KindConflict              Kind = "conflict"
	KindAlreadyRunning        Kind = "already-running"
	KindRateLimited           Kind = "rate-limited"
	KindInternal              Kind = "internal"
)

// status is the HTTP status each Kind is surfaced as, per spec §7.
var status = map[Kind]int{
	KindValidation:            http.StatusBadRequest,
	KindUnauthenticated:       http.StatusUnauthorized,
	KindForbiddenResource:     http.StatusNotFound,
	KindNotFound:              http.StatusNotFound,
	KindUpstreamRateLimited:   http.StatusBadGateway,
	KindUpstreamQuotaExceeded: http.StatusInternalServerError,
	KindUpstreamAuth:          http.StatusUnauthorized,
	KindUpstreamNetwork:       http.StatusBadGateway,
	KindConflict:              http.StatusConflict,
	KindAlreadyRunning:        http.StatusConflict,
	KindRateLimited:           http.StatusTooManyRequests,
	KindInternal:              http.StatusInternalServerError,
}

// title is the human-readable RFC7807 title for each Kind.
var title = map[Kind]string{
	KindValidation:            "Validation Failed",
	KindUnauthenticated:       "Unauthenticated",
	KindForbiddenResource:     "Not Found",
	KindNotFound:              "Not Found",
	KindUpstreamRateLimited:   "Upstream Rate Limited",
	KindUpstreamQuotaExceeded: "Upstream Quota Exceeded",
	KindUpstreamAuth:          "Upstream Authentication Failed",
	KindUpstreamNetwork:       "Upstream Network Error",
	KindConflict:              "Conflict",
	KindAlreadyRunning:        "Sync Already Running",
	KindRateLimited:           "Too Many Requests",
	KindInternal:              "Internal Server Error",
}

// problem is the RFC7807-shaped error body.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

type envelope struct {
	Success bool    `json:"success"`
	Error   problem `json:"error"`
}

// devDetail controls whether Respond includes the underlying error's detail
// in the response body. Set once at startup from config.Env; defaults to
// false so a forgotten override never leaks internals in production.
var devDetail bool

// SetDevelopment toggles whether internal errors include their detail in
// the client-facing body. Call once from cmd/server/main.go.
func SetDevelopment(enabled bool) {
	devDetail = enabled
}

// Respond renders kind as an RFC7807 envelope and logs the underlying err
// (never shown to the caller for KindInternal unless development mode is
// enabled).
func Respond(w http.ResponseWriter, r *http.Request, kind Kind, err error, detail string) {
	code := status[kind]
	if code == 0 {
		code = http.StatusInternalServerError
	}

	if err != nil {
		if code >= http.StatusInternalServerError {
			LogError(r, string(kind), err)
		} else {
			LogInfo(r, string(kind)+": "+err.Error())
		}
	}

	if detail == "" && kind == KindInternal && devDetail && err != nil {
		detail = err.Error()
	}

	body := envelope{
		Success: false,
		Error: problem{
			Type:     "https://gcalsync.example.com/problems/" + string(kind),
			Title:    title[kind],
			Status:   code,
			Detail:   detail,
			Instance: middleware.GetReqID(r.Context()),
		},
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// LogError logs err with a request-id prefix when present.
func LogError(r *http.Request, message string, err error) {
	requestID := middleware.GetReqID(r.Context())
	if requestID != "" {
		log.Printf("[ERROR] RequestID=%s: %s: %v", requestID, message, err)
	} else {
		log.Printf("[ERROR] %s: %v", message, err)
	}
}

// LogInfo logs an informational message with a request-id prefix when
// present.
func LogInfo(r *http.Request, message string) {
	requestID := middleware.GetReqID(r.Context())
	if requestID != "" {
		log.Printf("[INFO] RequestID=%s: %s", requestID, message)
	} else {
		log.Printf("[INFO] %s", message)
	}
}
