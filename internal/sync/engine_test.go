package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
)

type fakeTokens struct{}

func (fakeTokens) EnsureValid(ctx context.Context, userID string) (string, error) {
	return "access-token", nil
}

type fakeEvents struct {
	rows map[string]store.Event // keyed by upstream event id
}

func newFakeEvents() *fakeEvents { return &fakeEvents{rows: map[string]store.Event{}} }

func (f *fakeEvents) GetByUpstreamID(ctx context.Context, userID, upstreamID string) (*store.Event, error) {
	e, ok := f.rows[upstreamID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEvents) UpsertByUpstreamID(ctx context.Context, userID, upstreamID string, event store.Event) (*store.Event, error) {
	f.rows[upstreamID] = event
	return &event, nil
}

func (f *fakeEvents) DeleteByUpstreamID(ctx context.Context, userID, upstreamID string) error {
	if _, ok := f.rows[upstreamID]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, upstreamID)
	return nil
}

type fakeCursors struct {
	cursors map[string]*store.SyncCursor
}

func newFakeCursors() *fakeCursors { return &fakeCursors{cursors: map[string]*store.SyncCursor{}} }

func (f *fakeCursors) Get(ctx context.Context, userID string) (*store.SyncCursor, error) {
	c, ok := f.cursors[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCursors) TryStart(ctx context.Context, userID string) (bool, error) {
	c, ok := f.cursors[userID]
	if !ok {
		f.cursors[userID] = &store.SyncCursor{OwnerUserID: userID, SyncInProgress: true, SyncStartedAt: time.Now()}
		return true, nil
	}
	if c.SyncInProgress {
		return false, nil
	}
	c.SyncInProgress = true
	c.SyncStartedAt = time.Now()
	return true, nil
}

func (f *fakeCursors) CompleteSuccess(ctx context.Context, userID, nextSyncToken string, fullSyncCompleted bool) error {
	c := f.cursors[userID]
	c.SyncInProgress = false
	c.NextSyncToken = nextSyncToken
	c.FullSyncCompleted = fullSyncCompleted
	c.LastSuccessfulSync = time.Now()
	c.LastError = ""
	c.ConsecutiveErrors = 0
	return nil
}

func (f *fakeCursors) CompleteFailure(ctx context.Context, userID, errMsg string) error {
	c := f.cursors[userID]
	c.SyncInProgress = false
	c.LastError = errMsg
	c.ConsecutiveErrors++
	return nil
}

func (f *fakeCursors) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	reset := 0
	cutoff := time.Now().Add(-olderThan)
	for _, c := range f.cursors {
		if c.SyncInProgress && c.SyncStartedAt.Before(cutoff) {
			c.SyncInProgress = false
			c.LastError = "operator reset: stuck sync"
			reset++
		}
	}
	return reset, nil
}

func (f *fakeCursors) ListEligibleForScheduledSync(ctx context.Context, maxConsecutiveErrors int) ([]string, error) {
	var ids []string
	for id, c := range f.cursors {
		if c.ConsecutiveErrors < maxConsecutiveErrors {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeProvider struct {
	pages       []*provider.EventPage
	pageIdx     int
	watchCalled bool
}

func (p *fakeProvider) ListEvents(ctx context.Context, accessToken string, opts provider.ListEventsOptions) (*provider.EventPage, error) {
	if p.pageIdx >= len(p.pages) {
		return &provider.EventPage{}, nil
	}
	page := p.pages[p.pageIdx]
	p.pageIdx++
	return page, nil
}

func (p *fakeProvider) InsertEvent(ctx context.Context, accessToken string, input provider.UpstreamEventInput) (*provider.UpstreamEvent, error) {
	return nil, errors.New("not used")
}
func (p *fakeProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, input provider.UpstreamEventInput) (*provider.UpstreamEvent, error) {
	return nil, errors.New("not used")
}
func (p *fakeProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	return errors.New("not used")
}
func (p *fakeProvider) Watch(ctx context.Context, accessToken string, req provider.WatchRequest) (*provider.WatchResult, error) {
	p.watchCalled = true
	return nil, nil
}
func (p *fakeProvider) StopWatch(ctx context.Context, accessToken, channelID, resourceID string) error {
	return nil
}

func newEngine(p *fakeProvider, events *fakeEvents, cursors *fakeCursors) *Engine {
	return New(p, fakeTokens{}, events, cursors, retry.NewExecutor(retry.NewMetrics()))
}

func timePtr(t time.Time) *time.Time { return &t }

func TestRunFullSyncCreatesNewEvents(t *testing.T) {
	prov := &fakeProvider{pages: []*provider.EventPage{
		{
			Items: []provider.UpstreamEvent{
				{ID: "ev-1", Status: "confirmed", Summary: "Standup", Start: provider.EventTime{DateTime: timePtr(time.Now())}, End: provider.EventTime{DateTime: timePtr(time.Now().Add(time.Hour))}, Updated: time.Now()},
			},
			NextSyncToken: "token-1",
		},
	}}
	events := newFakeEvents()
	cursors := newFakeCursors()
	eng := newEngine(prov, events, cursors)

	result, err := eng.Run(context.Background(), "user-1", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Mode != "full" || result.Created != 1 || result.Processed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok := events.rows["ev-1"]; !ok {
		t.Errorf("expected event to be created")
	}
	cursor := cursors.cursors["user-1"]
	if cursor.SyncInProgress {
		t.Errorf("expected sync-in-progress to clear after success")
	}
	if !cursor.FullSyncCompleted || cursor.NextSyncToken != "token-1" {
		t.Errorf("expected cursor to record full-sync completion and next token, got %+v", cursor)
	}
}

func TestRunIncrementalSyncDeletesCancelledEvent(t *testing.T) {
	events := newFakeEvents()
	events.rows["ev-1"] = store.Event{OwnerUserID: "user-1", Title: "Old", LastModified: time.Now().Add(-time.Hour)}
	cursors := newFakeCursors()
	cursors.cursors["user-1"] = &store.SyncCursor{OwnerUserID: "user-1", FullSyncCompleted: true, NextSyncToken: "prior-token"}

	prov := &fakeProvider{pages: []*provider.EventPage{
		{
			Items:         []provider.UpstreamEvent{{ID: "ev-1", Status: "cancelled"}},
			NextSyncToken: "token-2",
		},
	}}
	eng := newEngine(prov, events, cursors)

	result, err := eng.Run(context.Background(), "user-1", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Mode != "incremental" || result.Deleted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok := events.rows["ev-1"]; ok {
		t.Errorf("expected event to be deleted")
	}
}

func TestRunFallsBackToFullSyncOnCursorInvalidation(t *testing.T) {
	events := newFakeEvents()
	cursors := newFakeCursors()
	cursors.cursors["user-1"] = &store.SyncCursor{OwnerUserID: "user-1", FullSyncCompleted: true, NextSyncToken: "stale-token"}

	prov := &invalidatingProvider{
		full: &provider.EventPage{
			Items:         []provider.UpstreamEvent{{ID: "ev-1", Status: "confirmed", Summary: "Recovered", Updated: time.Now()}},
			NextSyncToken: "fresh-token",
		},
	}
	eng := New(prov, fakeTokens{}, events, cursors, retry.NewExecutor(retry.NewMetrics()))

	result, err := eng.Run(context.Background(), "user-1", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Mode != "full" {
		t.Fatalf("expected fallback to full sync, got mode %q", result.Mode)
	}
	if !prov.sawSyncToken {
		t.Errorf("expected engine to have attempted incremental sync first")
	}
}

// invalidatingProvider fails the first (incremental) call with a 410 and
// succeeds on the retry with a fresh full-sync page.
type invalidatingProvider struct {
	fakeProvider
	full         *provider.EventPage
	sawSyncToken bool
}

func (p *invalidatingProvider) ListEvents(ctx context.Context, accessToken string, opts provider.ListEventsOptions) (*provider.EventPage, error) {
	if opts.SyncToken != "" {
		p.sawSyncToken = true
		return nil, &googleapi.Error{Code: 410, Message: "sync token invalid"}
	}
	return p.full, nil
}

func TestRunAbortsWhenAlreadyRunning(t *testing.T) {
	events := newFakeEvents()
	cursors := newFakeCursors()
	cursors.cursors["user-1"] = &store.SyncCursor{OwnerUserID: "user-1", SyncInProgress: true}

	eng := newEngine(&fakeProvider{}, events, cursors)
	_, err := eng.Run(context.Background(), "user-1", Options{})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunSkipsUpdateWhenUpstreamNotNewer(t *testing.T) {
	lastModified := time.Now().Add(-time.Hour)
	events := newFakeEvents()
	events.rows["ev-1"] = store.Event{OwnerUserID: "user-1", Title: "Unchanged", LastModified: lastModified}
	cursors := newFakeCursors()

	prov := &fakeProvider{pages: []*provider.EventPage{
		{
			Items: []provider.UpstreamEvent{{ID: "ev-1", Status: "confirmed", Summary: "Stale Update", Updated: lastModified.Add(-time.Minute)}},
		},
	}}
	eng := newEngine(prov, events, cursors)

	result, err := eng.Run(context.Background(), "user-1", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Updated != 0 || result.Created != 0 {
		t.Fatalf("expected no-op for stale upstream update, got %+v", result)
	}
	if events.rows["ev-1"].Title != "Unchanged" {
		t.Errorf("expected local row to remain unchanged")
	}
}
