// Package eventstore is the Event Store Facade: transactional reads and
// writes of the local event replica with filtering, pagination, full-text
// search, and conflict-free upsert on the upstream identifier.
package eventstore

import (
	"context"
	"errors"

	"github.com/jw6ventures/gcalsync/internal/store"
)

// ErrInvalidEvent is returned when an event fails the invariants enforced
// at this layer (end≥start, attendee email well-formedness, status enum).
var ErrInvalidEvent = errors.New("eventstore: invalid event")

// Facade wraps the store's EventRepository with the validation and
// owner-scoping rules the spec assigns to this layer.
type Facade struct {
	events store.EventRepository
}

// New constructs a Facade over the given repository.
func New(events store.EventRepository) *Facade {
	return &Facade{events: events}
}

// List returns events owned by userID matching filter, ascending by start
// instant, plus the total count evaluated under the same filter absent
// pagination.
func (f *Facade) List(ctx context.Context, userID string, filter store.EventFilter) ([]store.Event, int, error) {
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return f.events.List(ctx, userID, filter)
}

// Get returns a single event, scoped to its owner.
func (f *Facade) Get(ctx context.Context, userID, id string) (*store.Event, error) {
	return f.events.GetByID(ctx, userID, id)
}

// GetByUpstreamID looks up an event by its upstream identifier, scoped to
// its owner. Used by the Sync Engine to decide insert vs. update.
func (f *Facade) GetByUpstreamID(ctx context.Context, userID, upstreamID string) (*store.Event, error) {
	return f.events.GetByUpstreamID(ctx, userID, upstreamID)
}

// Create validates and persists a manually-authored event.
func (f *Facade) Create(ctx context.Context, event store.Event) (*store.Event, error) {
	if event.Status == "" {
		event.Status = store.EventStatusConfirmed
	}
	if event.Source == "" {
		event.Source = store.EventSourceManual
	}
	if err := ValidateEvent(event.Title, event.Start, event.End, event.Attendees, event.Status); err != nil {
		return nil, err
	}
	return f.events.Create(ctx, event)
}

// Update applies a sparse patch. Unchanged fields retain their stored
// value; the combined result must still satisfy end≥start and well-formed
// attendee emails, so the current row is read first to validate against
// the fields the patch leaves untouched.
func (f *Facade) Update(ctx context.Context, userID, id string, patch store.EventPatch) (*store.Event, error) {
	current, err := f.events.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	title := current.Title
	start := current.Start
	end := current.End
	attendees := current.Attendees
	status := current.Status

	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Start != nil {
		start = *patch.Start
	}
	if patch.End != nil {
		end = *patch.End
	}
	if patch.Attendees != nil {
		attendees = *patch.Attendees
	}
	if patch.Status != nil {
		status = *patch.Status
	}

	if err := ValidateEvent(title, start, end, attendees, status); err != nil {
		return nil, err
	}

	return f.events.Update(ctx, userID, id, patch)
}

// Delete hard-deletes an event. Cancellation-via-status is a distinct
// operation performed through Update.
func (f *Facade) Delete(ctx context.Context, userID, id string) error {
	return f.events.Delete(ctx, userID, id)
}

// UpsertByUpstreamID replaces all mutable fields of the local row matching
// (userID, upstreamID), or inserts one, and bumps last-modified. Used by
// the Sync Engine during reconciliation.
func (f *Facade) UpsertByUpstreamID(ctx context.Context, userID, upstreamID string, event store.Event) (*store.Event, error) {
	if event.Status == "" {
		event.Status = store.EventStatusConfirmed
	}
	if event.Source == "" {
		event.Source = store.EventSourceUpstream
	}
	if err := ValidateEvent(event.Title, event.Start, event.End, event.Attendees, event.Status); err != nil {
		return nil, err
	}
	return f.events.UpsertByUpstreamID(ctx, userID, upstreamID, event)
}

// DeleteByUpstreamID removes the local row for a cancelled upstream event.
// Absence is not an error: the Sync Engine counts this as a no-op deletion.
func (f *Facade) DeleteByUpstreamID(ctx context.Context, userID, upstreamID string) error {
	err := f.events.DeleteByUpstreamID(ctx, userID, upstreamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

