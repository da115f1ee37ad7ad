package store

import "time"

// EventStatus is the closed set of values an Event's Status may take.
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

// EventSource names where an Event's data originated.
type EventSource string

const (
	EventSourceUpstream EventSource = "upstream"
	EventSourceManual   EventSource = "manual"
	EventSourceImported EventSource = "imported"
)

// User is a principal with upstream (Google) account linkage. Tokens are
// stored wrapped (ciphertext); only internal/token unwraps them.
type User struct {
	ID                  string
	UpstreamUserID      *string
	Email               string
	DisplayName         string
	PictureURL          string
	WrappedAccessToken  string
	WrappedRefreshToken string
	AccessTokenExpiry   time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Attendee is one entry in an Event's attendee list.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// Event is a local replica row.
type Event struct {
	ID              string
	OwnerUserID     string
	UpstreamEventID *string
	Title           string
	Description     string
	Start           time.Time
	End             time.Time
	Location        string
	Attendees       []Attendee
	AllDay          bool
	Timezone        string
	Status          EventStatus
	Source          EventSource
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastModified    time.Time
}

// SyncCursor is per-user incremental-sync cursor state.
type SyncCursor struct {
	OwnerUserID        string
	NextSyncToken      string
	LastSuccessfulSync time.Time
	FullSyncCompleted  bool
	SyncInProgress     bool
	LastError          string
	ConsecutiveErrors  int
	SyncStartedAt      time.Time
}

// OAuthState is a short-lived CSRF nonce for the authorization-code flow.
type OAuthState struct {
	State     string
	UserID    *string
	ExpiresAt time.Time
}

// WebhookSubscription is an upstream push-channel binding.
type WebhookSubscription struct {
	ID                 string
	OwnerUserID        string
	UpstreamResourceID string
	ChannelID          string
	VerificationToken  string
	ResourceURI        string
	ExpiresAt          time.Time
	Active             bool
	CreatedAt          time.Time
}
