// Package writethrough is the Write-Through Mediator: it accepts a mutation
// iff it succeeds upstream and the local replica has been updated to
// match, never acknowledging a write the upstream rejected.
package writethrough

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/jw6ventures/gcalsync/internal/eventstore"
	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
)

// tokenSource is the subset of *token.Manager this package depends on.
type tokenSource interface {
	EnsureValid(ctx context.Context, userID string) (string, error)
}

// events is the subset of *eventstore.Facade this package depends on. The
// local mutation in each operation below is a single row write, so it
// stands in for the "local transaction" the spec names: nothing is written
// until the upstream call has already succeeded, which gives the same
// never-diverge guarantee a literal BEGIN/COMMIT would.
type events interface {
	Get(ctx context.Context, userID, id string) (*store.Event, error)
	Create(ctx context.Context, event store.Event) (*store.Event, error)
	Update(ctx context.Context, userID, id string, patch store.EventPatch) (*store.Event, error)
	Delete(ctx context.Context, userID, id string) error
}

// Mediator implements createEvent/updateEvent/deleteEvent per spec §4.7.
type Mediator struct {
	provider  provider.Provider
	tokens    tokenSource
	events    events
	retryExec *retry.Executor
}

// New wires a Mediator.
func New(p provider.Provider, tokens tokenSource, ev events, retryExec *retry.Executor) *Mediator {
	return &Mediator{provider: p, tokens: tokens, events: ev, retryExec: retryExec}
}

// CreateEvent validates the input, inserts it upstream, and on success
// persists the local replica row carrying the upstream-assigned id.
func (m *Mediator) CreateEvent(ctx context.Context, userID string, event store.Event) (*store.Event, error) {
	if event.Status == "" {
		event.Status = store.EventStatusConfirmed
	}
	if err := eventstore.ValidateEvent(event.Title, event.Start, event.End, event.Attendees, event.Status); err != nil {
		return nil, err
	}

	accessToken, err := m.tokens.EnsureValid(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure valid token: %w", err)
	}

	created, err := retry.Execute(ctx, m.retryExec, "writethrough.create_event", retry.DefaultPolicy(), func(ctx context.Context) (*provider.UpstreamEvent, error) {
		return m.provider.InsertEvent(ctx, accessToken, toUpstreamInput(event))
	})
	if err != nil {
		return nil, err
	}

	upstreamID := created.ID
	event.OwnerUserID = userID
	event.UpstreamEventID = &upstreamID
	if event.Source == "" {
		event.Source = store.EventSourceManual
	}
	return m.events.Create(ctx, event)
}

// UpdateEvent merges patch over the current row to build the complete
// upstream payload, applies it upstream, then applies the same sparse
// patch locally only after the upstream call has succeeded.
func (m *Mediator) UpdateEvent(ctx context.Context, userID, id string, patch store.EventPatch) (*store.Event, error) {
	current, err := m.events.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load current event: %w", err)
	}
	if current.UpstreamEventID == nil {
		return nil, fmt.Errorf("writethrough: event %s has no upstream id", id)
	}

	merged := applyPatch(*current, patch)
	if err := eventstore.ValidateEvent(merged.Title, merged.Start, merged.End, merged.Attendees, merged.Status); err != nil {
		return nil, err
	}

	accessToken, err := m.tokens.EnsureValid(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure valid token: %w", err)
	}

	upstreamID := *current.UpstreamEventID
	_, err = retry.Execute(ctx, m.retryExec, "writethrough.update_event", retry.DefaultPolicy(), func(ctx context.Context) (*provider.UpstreamEvent, error) {
		return m.provider.UpdateEvent(ctx, accessToken, upstreamID, toUpstreamInput(merged))
	})
	if err != nil {
		return nil, err
	}

	return m.events.Update(ctx, userID, id, patch)
}

// DeleteEvent deletes upstream then locally, treating an upstream 404/410
// (already gone) as success so a prior partial failure cannot wedge the
// local replica forever.
func (m *Mediator) DeleteEvent(ctx context.Context, userID, id string) error {
	current, err := m.events.Get(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load current event: %w", err)
	}
	if current.UpstreamEventID == nil {
		return fmt.Errorf("writethrough: event %s has no upstream id", id)
	}

	accessToken, err := m.tokens.EnsureValid(ctx, userID)
	if err != nil {
		return fmt.Errorf("ensure valid token: %w", err)
	}

	upstreamID := *current.UpstreamEventID
	_, err = retry.Execute(ctx, m.retryExec, "writethrough.delete_event", retry.DefaultPolicy(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.provider.DeleteEvent(ctx, accessToken, upstreamID)
	})
	if err != nil && !isUpstreamGone(err) {
		return err
	}

	return m.events.Delete(ctx, userID, id)
}

func applyPatch(current store.Event, patch store.EventPatch) store.Event {
	if patch.Title != nil {
		current.Title = *patch.Title
	}
	if patch.Description != nil {
		current.Description = *patch.Description
	}
	if patch.Start != nil {
		current.Start = *patch.Start
	}
	if patch.End != nil {
		current.End = *patch.End
	}
	if patch.Location != nil {
		current.Location = *patch.Location
	}
	if patch.Attendees != nil {
		current.Attendees = *patch.Attendees
	}
	if patch.AllDay != nil {
		current.AllDay = *patch.AllDay
	}
	if patch.Timezone != nil {
		current.Timezone = *patch.Timezone
	}
	if patch.Status != nil {
		current.Status = *patch.Status
	}
	if patch.Source != nil {
		current.Source = *patch.Source
	}
	return current
}

// isUpstreamGone reports whether err represents the upstream already
// having deleted the resource (404 or 410), which DeleteEvent treats as
// success rather than failure.
func isUpstreamGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 404 || gerr.Code == 410
	}
	return false
}
