package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// respondOK renders the success envelope spec §6 names for every non-error
// response: {success: true, data, message?}.
func respondOK(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data, Message: message})
}

// userDTO is the wire shape of a User, deliberately excluding the wrapped
// credential fields — those never leave the Credential Vault/Token Manager
// boundary.
type userDTO struct {
	ID             string  `json:"id"`
	UpstreamUserID *string `json:"upstreamUserId,omitempty"`
	Email          string  `json:"email"`
	DisplayName    string  `json:"displayName"`
	PictureURL     string  `json:"pictureUrl,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toUserDTO(u *store.User) userDTO {
	return userDTO{
		ID:             u.ID,
		UpstreamUserID: u.UpstreamUserID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		PictureURL:     u.PictureURL,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      u.UpdatedAt.Format(time.RFC3339),
	}
}

// eventDTO is the wire shape of an Event.
type eventDTO struct {
	ID              string           `json:"id"`
	UpstreamEventID *string          `json:"upstreamEventId,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Start           string           `json:"start"`
	End             string           `json:"end"`
	Location        string           `json:"location,omitempty"`
	Attendees       []store.Attendee `json:"attendees,omitempty"`
	AllDay          bool             `json:"allDay"`
	Timezone        string           `json:"timezone"`
	Status          store.EventStatus `json:"status"`
	Source          store.EventSource `json:"source"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

func toEventDTO(e *store.Event) eventDTO {
	return eventDTO{
		ID:              e.ID,
		UpstreamEventID: e.UpstreamEventID,
		Title:           e.Title,
		Description:     e.Description,
		Start:           e.Start.Format(time.RFC3339),
		End:             e.End.Format(time.RFC3339),
		Location:        e.Location,
		Attendees:       e.Attendees,
		AllDay:          e.AllDay,
		Timezone:        e.Timezone,
		Status:          e.Status,
		Source:          e.Source,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       e.UpdatedAt.Format(time.RFC3339),
	}
}

func toEventDTOs(events []store.Event) []eventDTO {
	out := make([]eventDTO, len(events))
	for i := range events {
		out[i] = toEventDTO(&events[i])
	}
	return out
}

type pageDTO struct {
	Items   []eventDTO `json:"items"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	Total   int        `json:"total"`
	HasNext bool       `json:"hasNext"`
}

func toPageDTO(events []store.Event, total, page, limit int) pageDTO {
	return pageDTO{
		Items:   toEventDTOs(events),
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	}
}

type syncResultDTO struct {
	Mode      string             `json:"mode"`
	Processed int                `json:"processed"`
	Created   int                `json:"created"`
	Updated   int                `json:"updated"`
	Deleted   int                `json:"deleted"`
	Errors    []sync.ItemError   `json:"errors,omitempty"`
}

func toSyncResultDTO(r *sync.Result) syncResultDTO {
	return syncResultDTO{
		Mode:      r.Mode,
		Processed: r.Processed,
		Created:   r.Created,
		Updated:   r.Updated,
		Deleted:   r.Deleted,
		Errors:    r.Errors,
	}
}

type webhookSubscriptionDTO struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channelId"`
	ResourceURI string `json:"resourceUri"`
	ExpiresAt   string `json:"expiresAt"`
	Active      bool   `json:"active"`
}

func toWebhookSubscriptionDTO(s *store.WebhookSubscription) webhookSubscriptionDTO {
	return webhookSubscriptionDTO{
		ID:          s.ID,
		ChannelID:   s.ChannelID,
		ResourceURI: s.ResourceURI,
		ExpiresAt:   s.ExpiresAt.Format(time.RFC3339),
		Active:      s.Active,
	}
}
