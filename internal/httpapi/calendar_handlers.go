package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
	"github.com/jw6ventures/gcalsync/internal/eventstore"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
	"github.com/jw6ventures/gcalsync/internal/webhook"
	"github.com/jw6ventures/gcalsync/internal/writethrough"
)

type calendarHandlers struct {
	events  *eventstore.Facade
	mediate *writethrough.Mediator
	syncer  *sync.Engine
	webhook *webhook.Demultiplexer
}

// list handles GET /calendar/events.
func (h *calendarHandlers) list(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	filter, err := parseEventFilter(r)
	if err != nil {
		apierr.Respond(w, r, apierr.KindValidation, err, err.Error())
		return
	}

	events, total, err := h.events.List(r.Context(), user.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toPageDTO(events, total, filter.Page, filter.Limit), "")
}

// get handles GET /calendar/events/{id}.
func (h *calendarHandlers) get(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	event, err := h.events.Get(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toEventDTO(event), "")
}

// rangeList handles GET /calendar/events/range/{kind}.
func (h *calendarHandlers) rangeList(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	kind := chi.URLParam(r, "kind")

	start, end, err := resolveRange(kind, r)
	if err != nil {
		apierr.Respond(w, r, apierr.KindValidation, err, err.Error())
		return
	}

	filter := store.EventFilter{Page: 1, Limit: 100, StartDate: &start, EndDate: &end}
	events, total, err := h.events.List(r.Context(), user.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toPageDTO(events, total, filter.Page, filter.Limit), "")
}

// search handles GET /calendar/search?q=.
func (h *calendarHandlers) search(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	q := r.URL.Query().Get("q")
	if len(q) < 2 {
		apierr.Respond(w, r, apierr.KindValidation, nil, "q must be at least 2 characters")
		return
	}

	filter, err := parseEventFilter(r)
	if err != nil {
		apierr.Respond(w, r, apierr.KindValidation, err, err.Error())
		return
	}
	filter.Search = q

	events, total, err := h.events.List(r.Context(), user.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toPageDTO(events, total, filter.Page, filter.Limit), "")
}

type eventWriteRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Start       *time.Time        `json:"start"`
	End         *time.Time        `json:"end"`
	Location    *string           `json:"location"`
	Attendees   *[]store.Attendee `json:"attendees"`
	AllDay      *bool             `json:"allDay"`
	Timezone    *string           `json:"timezone"`
	Status      *store.EventStatus `json:"status"`
}

// create handles POST /calendar/events, the write-through create path.
func (h *calendarHandlers) create(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req eventWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Respond(w, r, apierr.KindValidation, err, "malformed request body")
		return
	}

	event := store.Event{OwnerUserID: user.ID, Timezone: "UTC"}
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Start != nil {
		event.Start = *req.Start
	}
	if req.End != nil {
		event.End = *req.End
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Attendees != nil {
		event.Attendees = *req.Attendees
	}
	if req.AllDay != nil {
		event.AllDay = *req.AllDay
	}
	if req.Timezone != nil {
		event.Timezone = *req.Timezone
	}
	if req.Status != nil {
		event.Status = *req.Status
	}

	created, err := h.mediate.CreateEvent(r.Context(), user.ID, event)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, toEventDTO(created), "")
}

// update handles PUT /calendar/events/{id}, the write-through update path
// with a sparse body merged over the existing row.
func (h *calendarHandlers) update(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req eventWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Respond(w, r, apierr.KindValidation, err, "malformed request body")
		return
	}

	patch := store.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
		Attendees:   req.Attendees,
		AllDay:      req.AllDay,
		Timezone:    req.Timezone,
		Status:      req.Status,
	}

	updated, err := h.mediate.UpdateEvent(r.Context(), user.ID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toEventDTO(updated), "")
}

// delete handles DELETE /calendar/events/{id}, the write-through delete
// path (upstream 404/410 treated as success).
func (h *calendarHandlers) delete(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.mediate.DeleteEvent(r.Context(), user.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, nil, "deleted")
}

type syncRequest struct {
	Force bool `json:"force"`
}

// sync handles POST /calendar/sync, an on-demand sync for the current
// user.
func (h *calendarHandlers) sync(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req syncRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.syncer.Run(r.Context(), user.ID, sync.Options{Force: req.Force})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toSyncResultDTO(result), "")
}

// batchSync handles POST /calendar/batch-sync, a two-year backfill
// implemented as a full sync with a widened time window.
func (h *calendarHandlers) batchSync(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	now := time.Now()
	opts := sync.Options{
		Force:   true,
		TimeMin: now.AddDate(-2, 0, 0),
		TimeMax: now.AddDate(2, 0, 0),
	}

	result, err := h.syncer.Run(r.Context(), user.ID, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, toSyncResultDTO(result), "")
}

// webhookNotification handles POST /calendar/webhook. Per spec §4.8 every
// response is HTTP 200 regardless of outcome, to absorb the upstream's
// retry-on-non-2xx behavior rather than feed a retry storm.
func (h *calendarHandlers) webhookNotification(w http.ResponseWriter, r *http.Request) {
	n := webhook.Notification{
		ResourceState: r.Header.Get("X-Goog-Resource-State"),
		ResourceID:    r.Header.Get("X-Goog-Resource-ID"),
		ResourceURI:   r.Header.Get("X-Goog-Resource-URI"),
		ChannelID:     r.Header.Get("X-Goog-Channel-ID"),
		ChannelToken:  r.Header.Get("X-Goog-Channel-Token"),
	}

	if _, err := h.webhook.HandleNotification(r.Context(), n); err != nil {
		apierr.LogInfo(r, "webhook: "+err.Error())
	}
	w.WriteHeader(http.StatusOK)
}

type webhookSubscribeRequest struct {
	Address    string `json:"address"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

// subscribeWebhook handles POST /calendar/webhook/subscribe.
func (h *calendarHandlers) subscribeWebhook(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req webhookSubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		apierr.Respond(w, r, apierr.KindValidation, err, "address is required")
		return
	}
	if req.TTLSeconds <= 0 {
		req.TTLSeconds = 604800 // 7 days, the upstream's push-channel maximum.
	}

	sub, err := h.webhook.Subscribe(r.Context(), user.ID, req.Address, req.TTLSeconds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, toWebhookSubscriptionDTO(sub), "")
}

type webhookUnsubscribeRequest struct {
	ChannelID string `json:"channelId"`
}

// unsubscribeWebhook handles DELETE /calendar/webhook/subscribe.
func (h *calendarHandlers) unsubscribeWebhook(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req webhookUnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		apierr.Respond(w, r, apierr.KindValidation, err, "channelId is required")
		return
	}

	if err := h.webhook.UnsubscribeByChannelID(r.Context(), user.ID, req.ChannelID); err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, nil, "unsubscribed")
}

func parseEventFilter(r *http.Request) (store.EventFilter, error) {
	q := r.URL.Query()
	filter := store.EventFilter{Page: 1, Limit: 50}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidQuery("page")
		}
		filter.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidQuery("limit")
		}
		filter.Limit = n
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidQuery("startDate")
		}
		filter.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidQuery("endDate")
		}
		filter.EndDate = &t
	}
	if v := q.Get("status"); v != "" {
		status := store.EventStatus(v)
		filter.Status = &status
	}
	if v := q.Get("source"); v != "" && v != "all" {
		source := store.EventSource(v)
		filter.Source = &source
	}
	filter.Search = q.Get("search")

	return filter, nil
}

func resolveRange(kind string, r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch kind {
	case "today":
		return startOfDay, startOfDay.AddDate(0, 0, 1), nil
	case "week":
		weekday := int(startOfDay.Weekday())
		weekStart := startOfDay.AddDate(0, 0, -weekday)
		return weekStart, weekStart.AddDate(0, 0, 7), nil
	case "month":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0), nil
	case "custom":
		q := r.URL.Query()
		start, err := time.Parse(time.RFC3339, q.Get("startDate"))
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidQuery("startDate")
		}
		end, err := time.Parse(time.RFC3339, q.Get("endDate"))
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidQuery("endDate")
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, errInvalidQuery("kind")
	}
}

type invalidQueryError struct{ param string }

func (e invalidQueryError) Error() string { return "invalid query parameter: " + e.param }

func errInvalidQuery(param string) error { return invalidQueryError{param: param} }
