package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/store"
)

type fakeProvider struct{}

func (fakeProvider) ListEvents(ctx context.Context, accessToken string, opts provider.ListEventsOptions) (*provider.EventPage, error) {
	return nil, errors.New("not used")
}

func (fakeProvider) InsertEvent(ctx context.Context, accessToken string, input provider.UpstreamEventInput) (*provider.UpstreamEvent, error) {
	return &provider.UpstreamEvent{ID: "upstream-1", Summary: input.Summary}, nil
}

func (fakeProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, input provider.UpstreamEventInput) (*provider.UpstreamEvent, error) {
	return &provider.UpstreamEvent{ID: eventID, Summary: input.Summary}, nil
}

func (fakeProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	return nil
}

func (fakeProvider) Watch(ctx context.Context, accessToken string, req provider.WatchRequest) (*provider.WatchResult, error) {
	return nil, errors.New("not used")
}

func (fakeProvider) StopWatch(ctx context.Context, accessToken, channelID, resourceID string) error {
	return nil
}

type fakeTokens struct{}

func (fakeTokens) EnsureValid(ctx context.Context, userID string) (string, error) {
	return "access-token", nil
}

type fakeUsers struct {
	rows map[string]store.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{rows: map[string]store.User{}} }

func (f *fakeUsers) UpsertFromOAuth(ctx context.Context, upstreamUserID, email, displayName, pictureURL string) (*store.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*store.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByUpstreamID(ctx context.Context, upstreamID string) (*store.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) UpdateTokens(ctx context.Context, userID, wrappedAccessToken, wrappedRefreshToken string, expiry time.Time) error {
	return errors.New("not used")
}

func (f *fakeUsers) ClearTokens(ctx context.Context, userID string) error {
	return errors.New("not used")
}

type fakeEvents struct {
	rows map[string]store.Event
}

func newFakeEvents() *fakeEvents { return &fakeEvents{rows: map[string]store.Event{}} }

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
	return errors.New("not used")
}

func (f *fakeEvents) UpsertByUpstreamID(ctx context.Context, ownerUserID, upstreamID string, event store.Event) (*store.Event, error) {
	return nil, errors.New("not used")
}
