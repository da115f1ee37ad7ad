// Package provider defines the outbound port to the upstream Google Calendar
// API and a sanitized, tagged-record shape for its responses. All coercion
// from the upstream's loosely-typed JSON happens in mapping.go so the rest
// of the service only ever sees the types in this file.
package provider

import (
	"context"
	"time"
)

// EventTime represents either a timed instant or an all-day date, mirroring
// the upstream's start/end shape where exactly one of DateTime or Date is
// set.
type EventTime struct {
	DateTime *time.Time
	Date     *string // YYYY-MM-DD, set only for all-day events
	TimeZone string
}

// IsAllDay reports whether this EventTime names a date rather than an
// instant.
func (t EventTime) IsAllDay() bool {
	return t.DateTime == nil && t.Date != nil
}

// Attendee is a sanitized attendee record.
type Attendee struct {
	Email          string
	DisplayName    string
	Optional       bool
	ResponseStatus string
}

// UpstreamEvent is the sanitized shape of a single Google Calendar event as
// seen after mapping. Unknown upstream fields are ignored.
type UpstreamEvent struct {
	ID          string
	Status      string // confirmed | tentative | cancelled
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []Attendee
	Updated     time.Time
}

// UpstreamEventInput is the payload sent to create or update an event. The
// upstream calendar API requires a complete representation on update, so
// callers (the Write-Through Mediator) are responsible for merging sparse
// fields before constructing this.
type UpstreamEventInput struct {
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []Attendee
	Status      string
}

// ListEventsOptions parameterizes a single events.list call.
type ListEventsOptions struct {
	// TimeMin/TimeMax bound a full sync's time window. Ignored when
	// SyncToken is set, per the upstream's contract.
	TimeMin *time.Time
	TimeMax *time.Time
	// SyncToken, when set, requests an incremental page.
	SyncToken string
	// PageToken continues a prior page within the same sync series.
	PageToken string
	MaxResults int64
}

// EventPage is one page of a sync series. NextSyncToken is only populated on
// the final page (when NextPageToken is empty).
type EventPage struct {
	Items         []UpstreamEvent
	NextPageToken string
	NextSyncToken string
}

// WatchRequest describes a push-notification channel to establish.
type WatchRequest struct {
	ChannelID   string
	Address     string // HTTPS callback URL
	Token       string // opaque verification token echoed back on notifications
	ExpirySeconds int64
}

// WatchResult is the upstream's acknowledgment of a Watch call.
type WatchResult struct {
	ResourceID string
	Expiration time.Time
}

// Provider is the outbound port to the upstream calendar. The Sync Engine
// and Write-Through Mediator depend on this interface, never on the
// concrete Google client, so tests can substitute a fake.
type Provider interface {
	ListEvents(ctx context.Context, accessToken string, opts ListEventsOptions) (*EventPage, error)
	InsertEvent(ctx context.Context, accessToken string, input UpstreamEventInput) (*UpstreamEvent, error)
	UpdateEvent(ctx context.Context, accessToken, eventID string, input UpstreamEventInput) (*UpstreamEvent, error)
	DeleteEvent(ctx context.Context, accessToken, eventID string) error
	Watch(ctx context.Context, accessToken string, req WatchRequest) (*WatchResult, error)
	StopWatch(ctx context.Context, accessToken, channelID, resourceID string) error
}
