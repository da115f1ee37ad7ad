package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jw6ventures/gcalsync/internal/store"
)

type fakeEvents struct {
	rows map[string]store.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{rows: map[string]store.Event{}}
}

func (f *fakeEvents) List(ctx context.Context, ownerUserID string, filter store.EventFilter) ([]store.Event, int, error) {
	var out []store.Event
	for _, e := range f.rows {
		if e.OwnerUserID == ownerUserID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (f *fakeEvents) GetByID(ctx context.Context, ownerUserID, id string) (*store.Event, error) {
	e, ok := f.rows[id]
	if !ok || e.OwnerUserID != ownerUserID {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEvents) GetByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) (*store.Event, error) {
	for _, e := range f.rows {
		if e.OwnerUserID == ownerUserID && e.UpstreamEventID != nil && *e.UpstreamEventID == upstreamID {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeEvents) Create(ctx context.Context, event store.Event) (*store.Event, error) {
	event.ID = "generated-id"
	f.rows[event.ID] = event
	return &event, nil
}

func (f *fakeEvents) Update(ctx context.Context, ownerUserID, id string, patch store.EventPatch) (*store.Event, error) {
	e, ok := f.rows[id]
	if !ok || e.OwnerUserID != ownerUserID {
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Start != nil {
		e.Start = *patch.Start
	}
	if patch.End != nil {
		e.End = *patch.End
	}
	if patch.Attendees != nil {
		e.Attendees = *patch.Attendees
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	f.rows[id] = e
	return &e, nil
}

func (f *fakeEvents) Delete(ctx context.Context, ownerUserID, id string) error {
	e, ok := f.rows[id]
	if !ok || e.OwnerUserID != ownerUserID {
		return store.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeEvents) DeleteByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) error {
	for id, e := range f.rows {
		if e.OwnerUserID == ownerUserID && e.UpstreamEventID != nil && *e.UpstreamEventID == upstreamID {
			delete(f.rows, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeEvents) UpsertByUpstreamID(ctx context.Context, ownerUserID, upstreamID string, event store.Event) (*store.Event, error) {
	for id, e := range f.rows {
		if e.OwnerUserID == ownerUserID && e.UpstreamEventID != nil && *e.UpstreamEventID == upstreamID {
			event.ID = id
			event.OwnerUserID = ownerUserID
			event.UpstreamEventID = &upstreamID
			f.rows[id] = event
			return &event, nil
		}
	}
	event.ID = "generated-id"
	event.OwnerUserID = ownerUserID
	event.UpstreamEventID = &upstreamID
	f.rows[event.ID] = event
	return &event, nil
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	f := New(newFakeEvents())
	now := time.Now()
	_, err := f.Create(context.Background(), store.Event{
		OwnerUserID: "u1",
		Title:       "Standup",
		Start:       now,
		End:         now.Add(-time.Hour),
	})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestCreateRejectsMalformedAttendeeEmail(t *testing.T) {
	f := New(newFakeEvents())
	now := time.Now()
	_, err := f.Create(context.Background(), store.Event{
		OwnerUserID: "u1",
		Title:       "Standup",
		Start:       now,
		End:         now.Add(time.Hour),
		Attendees:   []store.Attendee{{Email: "not-an-email"}},
	})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestCreateDefaultsStatusAndSource(t *testing.T) {
	f := New(newFakeEvents())
	now := time.Now()
	created, err := f.Create(context.Background(), store.Event{
		OwnerUserID: "u1",
		Title:       "Standup",
		Start:       now,
		End:         now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != store.EventStatusConfirmed {
		t.Errorf("expected default status confirmed, got %v", created.Status)
	}
	if created.Source != store.EventSourceManual {
		t.Errorf("expected default source manual, got %v", created.Source)
	}
}

func TestUpdateValidatesAgainstMergedFields(t *testing.T) {
	repo := newFakeEvents()
	now := time.Now()
	repo.rows["e1"] = store.Event{ID: "e1", OwnerUserID: "u1", Title: "Standup", Start: now, End: now.Add(time.Hour), Status: store.EventStatusConfirmed}

	f := New(repo)
	newStart := now.Add(2 * time.Hour)
	_, err := f.Update(context.Background(), "u1", "e1", store.EventPatch{Start: &newStart})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent when new start exceeds stored end, got %v", err)
	}
}

func TestUpdateRejectsCrossOwnerAccess(t *testing.T) {
	repo := newFakeEvents()
	now := time.Now()
	repo.rows["e1"] = store.Event{ID: "e1", OwnerUserID: "u1", Title: "Standup", Start: now, End: now.Add(time.Hour)}

	f := New(repo)
	title := "Hijacked"
	_, err := f.Update(context.Background(), "u2", "e1", store.EventPatch{Title: &title})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-owner update, got %v", err)
	}
}

func TestDeleteByUpstreamIDTreatsAbsenceAsSuccess(t *testing.T) {
	f := New(newFakeEvents())
	if err := f.DeleteByUpstreamID(context.Background(), "u1", "missing"); err != nil {
		t.Fatalf("expected no error for absent upstream id, got %v", err)
	}
}

func TestUpsertByUpstreamIDInsertsThenReplaces(t *testing.T) {
	f := New(newFakeEvents())
	now := time.Now()
	first, err := f.UpsertByUpstreamID(context.Background(), "u1", "g-1", store.Event{
		Title: "Planning", Start: now, End: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error on insert: %v", err)
	}

	second, err := f.UpsertByUpstreamID(context.Background(), "u1", "g-1", store.Event{
		Title: "Planning (renamed)", Start: now, End: now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error on replace: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected upsert to reuse local id %s, got %s", first.ID, second.ID)
	}
	if second.Title != "Planning (renamed)" {
		t.Errorf("expected replaced title, got %q", second.Title)
	}
}
