// Package sync is the Sync Engine: it reconciles upstream Google Calendar
// state into the local replica, choosing between a time-windowed full sync
// and a cursor-driven incremental sync, and falling back from the latter to
// the former when the upstream invalidates the cursor.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/store"
)

const (
	defaultWindow     = 365 * 24 * time.Hour
	defaultMaxResults = 2500
	maxConsecutiveErrors = 5
	stuckSyncTimeout  = time.Hour
)

// tokenSource is the subset of *token.Manager this package depends on.
type tokenSource interface {
	EnsureValid(ctx context.Context, userID string) (string, error)
}

// eventStore is the subset of *eventstore.Facade this package depends on.
type eventStore interface {
	GetByUpstreamID(ctx context.Context, userID, upstreamID string) (*store.Event, error)
	UpsertByUpstreamID(ctx context.Context, userID, upstreamID string, event store.Event) (*store.Event, error)
	DeleteByUpstreamID(ctx context.Context, userID, upstreamID string) error
}

// Engine drives full and incremental synchronization against a Provider,
// persisting reconciled events through an eventStore and tracking per-user
// progress through a SyncCursorRepository.
type Engine struct {
	provider provider.Provider
	tokens   tokenSource
	events   eventStore
	cursors  store.SyncCursorRepository
	retryExec *retry.Executor
}

// New wires an Engine.
func New(p provider.Provider, tokens tokenSource, events eventStore, cursors store.SyncCursorRepository, retryExec *retry.Executor) *Engine {
	return &Engine{provider: p, tokens: tokens, events: events, cursors: cursors, retryExec: retryExec}
}

// Run performs one synchronization pass for userID, selecting full or
// incremental mode per the cursor state and opts.Force, and manages the
// cursor's sync-in-progress lifecycle around the attempt.
func (e *Engine) Run(ctx context.Context, userID string, opts Options) (*Result, error) {
	started, err := e.cursors.TryStart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start sync: %w", err)
	}
	if !started {
		return nil, ErrAlreadyRunning
	}

	result, runErr := e.run(ctx, userID, opts)
	if runErr != nil {
		if failErr := e.cursors.CompleteFailure(ctx, userID, runErr.Error()); failErr != nil {
			return nil, fmt.Errorf("sync failed (%v) and failed to record failure: %w", runErr, failErr)
		}
		return nil, runErr
	}

	fullSyncCompleted := result.Mode == "full"
	cursor, cerr := e.cursors.Get(ctx, userID)
	if cerr == nil && cursor.FullSyncCompleted {
		fullSyncCompleted = true
	}
	if err := e.cursors.CompleteSuccess(ctx, userID, result.nextSyncToken, fullSyncCompleted); err != nil {
		return nil, fmt.Errorf("record sync success: %w", err)
	}
	return result.Result, nil
}

// runResult carries the next-sync-token alongside the caller-facing Result,
// which does not expose upstream cursor internals.
type runResult struct {
	*Result
	nextSyncToken string
}

func (e *Engine) run(ctx context.Context, userID string, opts Options) (*runResult, error) {
	accessToken, err := e.tokens.EnsureValid(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure valid token: %w", err)
	}

	cursor, err := e.cursors.Get(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load sync cursor: %w", err)
	}

	useIncremental := !opts.Force && cursor != nil && cursor.FullSyncCompleted && cursor.NextSyncToken != ""
	if useIncremental {
		result, err := e.incrementalSync(ctx, userID, accessToken, cursor.NextSyncToken, opts)
		if err == nil {
			return result, nil
		}
		if !isCursorInvalidated(err) {
			return nil, err
		}
	}

	return e.fullSync(ctx, userID, accessToken, opts)
}

func (e *Engine) fullSync(ctx context.Context, userID, accessToken string, opts Options) (*runResult, error) {
	timeMin := opts.TimeMin
	if timeMin.IsZero() {
		timeMin = time.Now().Add(-defaultWindow)
	}
	timeMax := opts.TimeMax
	if timeMax.IsZero() {
		timeMax = time.Now().Add(defaultWindow)
	}

	listOpts := provider.ListEventsOptions{
		TimeMin:    &timeMin,
		TimeMax:    &timeMax,
		MaxResults: maxResultsOrDefault(opts.MaxResults),
	}
	result, err := e.paginate(ctx, userID, accessToken, listOpts)
	if err != nil {
		return nil, err
	}
	result.Mode = "full"
	return result, nil
}

func (e *Engine) incrementalSync(ctx context.Context, userID, accessToken, syncToken string, opts Options) (*runResult, error) {
	listOpts := provider.ListEventsOptions{
		SyncToken:  syncToken,
		MaxResults: maxResultsOrDefault(opts.MaxResults),
	}
	result, err := e.paginate(ctx, userID, accessToken, listOpts)
	if err != nil {
		return nil, err
	}
	result.Mode = "incremental"
	return result, nil
}

func (e *Engine) paginate(ctx context.Context, userID, accessToken string, listOpts provider.ListEventsOptions) (*runResult, error) {
	result := &runResult{Result: &Result{}}

	pageToken := listOpts.PageToken
	for {
		listOpts.PageToken = pageToken
		page, err := retry.Execute(ctx, e.retryExec, "sync.list_events", retry.DefaultPolicy(), func(ctx context.Context) (*provider.EventPage, error) {
			return e.provider.ListEvents(ctx, accessToken, listOpts)
		})
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			e.reconcileItem(ctx, userID, item, result.Result)
		}

		if page.NextPageToken == "" {
			result.nextSyncToken = page.NextSyncToken
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

func (e *Engine) reconcileItem(ctx context.Context, userID string, item provider.UpstreamEvent, result *Result) {
	result.Processed++

	if item.Status == "cancelled" {
		if err := e.events.DeleteByUpstreamID(ctx, userID, item.ID); err != nil {
			e.recordItemError(result, item.ID, err)
			return
		}
		result.Deleted++
		return
	}

	current, err := e.events.GetByUpstreamID(ctx, userID, item.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.recordItemError(result, item.ID, err)
		return
	}

	isCreate := current == nil
	if !isCreate && !item.Updated.After(current.LastModified) {
		// Local copy is already current; nothing to do.
		return
	}

	local := toLocalEvent(userID, item)
	if _, err := e.events.UpsertByUpstreamID(ctx, userID, item.ID, local); err != nil {
		e.recordItemError(result, item.ID, err)
		return
	}
	if isCreate {
		result.Created++
	} else {
		result.Updated++
	}
}

func (e *Engine) recordItemError(result *Result, upstreamEventID string, err error) {
	classified := retry.Classify(err)
	result.Errors = append(result.Errors, ItemError{
		UpstreamEventID: upstreamEventID,
		Kind:            classified.Kind.String(),
		Message:         classified.Error(),
	})
}

func maxResultsOrDefault(v int64) int64 {
	if v <= 0 || v > defaultMaxResults {
		return defaultMaxResults
	}
	return v
}

// ResetStuckSyncs sweeps sync_in_progress rows stuck past olderThan back to
// idle with an operator-reset error marker. Called from the periodic
// background sweeper.
func (e *Engine) ResetStuckSyncs(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = stuckSyncTimeout
	}
	return e.cursors.SweepStuck(ctx, olderThan)
}

// ScheduleEligibleUsers returns the ids of users whose consecutive sync
// error count is below the disqualification threshold, for the periodic
// background scheduler to drive Run against.
func (e *Engine) ScheduleEligibleUsers(ctx context.Context) ([]string, error) {
	return e.cursors.ListEligibleForScheduledSync(ctx, maxConsecutiveErrors)
}

// isCursorInvalidated reports whether err indicates the upstream rejected
// the stored sync token as stale (HTTP 410), which the engine handles by
// transparently falling back to a full sync.
func isCursorInvalidated(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 410
	}
	var classified *retry.ClassifiedError
	if errors.As(err, &classified) {
		return errors.As(classified.Unwrap(), &gerr) && gerr.Code == 410
	}
	return false
}
