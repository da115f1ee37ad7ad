package store

import (
	"context"
	"time"
)

// EventFilter parameterizes Event Store Facade list queries. The caller
// (internal/eventstore) replaces a Limit outside [1,100] with 50; Page is
// 1-indexed.
type EventFilter struct {
	Page      int
	Limit     int
	StartDate *time.Time
	EndDate   *time.Time
	Status    *EventStatus
	Source    *EventSource // nil means "all"
	Search    string
}

// EventPatch is a sparse set of fields to apply over an existing Event.
// Nil fields are left unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Location    *string
	Attendees   *[]Attendee
	AllDay      *bool
	Timezone    *string
	Status      *EventStatus
	Source      *EventSource
}

// UserRepository persists User rows.
type UserRepository interface {
	UpsertFromOAuth(ctx context.Context, upstreamUserID, email, displayName, pictureURL string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUpstreamID(ctx context.Context, upstreamID string) (*User, error)
	UpdateTokens(ctx context.Context, userID, wrappedAccessToken, wrappedRefreshToken string, expiry time.Time) error
	ClearTokens(ctx context.Context, userID string) error
}

// EventRepository persists Event rows, scoped to an owning user.
type EventRepository interface {
	List(ctx context.Context, ownerUserID string, filter EventFilter) ([]Event, int, error)
	GetByID(ctx context.Context, ownerUserID, id string) (*Event, error)
	GetByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) (*Event, error)
	Create(ctx context.Context, event Event) (*Event, error)
	Update(ctx context.Context, ownerUserID, id string, patch EventPatch) (*Event, error)
	Delete(ctx context.Context, ownerUserID, id string) error
	DeleteByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) error
	UpsertByUpstreamID(ctx context.Context, ownerUserID, upstreamID string, event Event) (*Event, error)
}

// SyncCursorRepository persists per-user sync cursor state.
type SyncCursorRepository interface {
	Get(ctx context.Context, userID string) (*SyncCursor, error)
	// TryStart attempts the false->true sync-in-progress transition,
	// creating the cursor row on first use. It returns false without error
	// when a sync is already in progress.
	TryStart(ctx context.Context, userID string) (bool, error)
	CompleteSuccess(ctx context.Context, userID, nextSyncToken string, fullSyncCompleted bool) error
	CompleteFailure(ctx context.Context, userID, errMsg string) error
	// SweepStuck resets sync_in_progress=false for rows started more than
	// `olderThan` ago, recording an operator-reset error marker. It returns
	// the number of rows reset.
	SweepStuck(ctx context.Context, olderThan time.Duration) (int, error)
	// ListEligibleForScheduledSync returns user ids whose consecutive error
	// count is below maxConsecutiveErrors, for the periodic scheduler.
	ListEligibleForScheduledSync(ctx context.Context, maxConsecutiveErrors int) ([]string, error)
}

// OAuthStateRepository persists short-lived CSRF nonces.
type OAuthStateRepository interface {
	Create(ctx context.Context, state OAuthState) error
	// Consume looks up and deletes a state row in one step (one-shot), and
	// returns ErrNotFound when absent or expired.
	Consume(ctx context.Context, state string) (*OAuthState, error)
	GC(ctx context.Context, before time.Time) (int, error)
}

// WebhookSubscriptionRepository persists push-channel bindings.
type WebhookSubscriptionRepository interface {
	Create(ctx context.Context, sub WebhookSubscription) (*WebhookSubscription, error)
	FindActiveByChannelAndResource(ctx context.Context, channelID, resourceID string) (*WebhookSubscription, error)
	// GetByChannelID looks up a subscription (active or not) owned by
	// ownerUserID, for the unsubscribe flow.
	GetByChannelID(ctx context.Context, ownerUserID, channelID string) (*WebhookSubscription, error)
	Deactivate(ctx context.Context, id string) error
	DeactivateByChannelID(ctx context.Context, channelID string) error
	ListExpired(ctx context.Context, before time.Time) ([]WebhookSubscription, error)
}
