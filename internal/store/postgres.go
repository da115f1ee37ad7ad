package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// userRepo implements UserRepository.
type userRepo struct {
	pool *pgxpool.Pool
}

func (r *userRepo) UpsertFromOAuth(ctx context.Context, upstreamUserID, email, displayName, pictureURL string) (*User, error) {
	defer observeDB(ctx, "users.upsert_from_oauth")()
	const q = `
INSERT INTO users (upstream_user_id, email, display_name, picture_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (upstream_user_id) DO UPDATE SET
	email = EXCLUDED.email,
	display_name = EXCLUDED.display_name,
	picture_url = EXCLUDED.picture_url,
	updated_at = NOW()
RETURNING id, upstream_user_id, email, display_name, picture_url,
	wrapped_access_token, wrapped_refresh_token, access_token_expiry, created_at, updated_at`
	row := r.pool.QueryRow(ctx, q, upstreamUserID, email, displayName, pictureURL)
	return scanUser(row)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*User, error) {
	defer observeDB(ctx, "users.get_by_id")()
	const q = `
SELECT id, upstream_user_id, email, display_name, picture_url,
	wrapped_access_token, wrapped_refresh_token, access_token_expiry, created_at, updated_at
FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *userRepo) GetByUpstreamID(ctx context.Context, upstreamID string) (*User, error) {
	defer observeDB(ctx, "users.get_by_upstream_id")()
	const q = `
SELECT id, upstream_user_id, email, display_name, picture_url,
	wrapped_access_token, wrapped_refresh_token, access_token_expiry, created_at, updated_at
FROM users WHERE upstream_user_id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, q, upstreamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *userRepo) UpdateTokens(ctx context.Context, userID, wrappedAccessToken, wrappedRefreshToken string, expiry time.Time) error {
	defer observeDB(ctx, "users.update_tokens")()
	const q = `
UPDATE users SET
	wrapped_access_token = @accessToken,
	wrapped_refresh_token = @refreshToken,
	access_token_expiry = @expiry,
	updated_at = NOW()
WHERE id = @id`
	tag, err := r.pool.Exec(ctx, q, pgx.NamedArgs{
		"accessToken":  wrappedAccessToken,
		"refreshToken": wrappedRefreshToken,
		"expiry":       expiry,
		"id":           userID,
	})
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) ClearTokens(ctx context.Context, userID string) error {
	defer observeDB(ctx, "users.clear_tokens")()
	const q = `
UPDATE users SET
	wrapped_access_token = '',
	wrapped_refresh_token = '',
	access_token_expiry = NULL,
	updated_at = NOW()
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.UpstreamUserID, &u.Email, &u.DisplayName, &u.PictureURL,
		&u.WrappedAccessToken, &u.WrappedRefreshToken, &u.AccessTokenExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// eventRepo implements EventRepository.
type eventRepo struct {
	pool *pgxpool.Pool
}

const eventColumns = `id, owner_user_id, upstream_event_id, title, description, start_at, end_at,
	location, attendees, all_day, timezone, status, source, created_at, updated_at, last_modified`

func (r *eventRepo) List(ctx context.Context, ownerUserID string, filter EventFilter) ([]Event, int, error) {
	defer observeDB(ctx, "events.list")()

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var where []string
	args := pgx.NamedArgs{"owner": ownerUserID}
	where = append(where, "owner_user_id = @owner")

	if filter.StartDate != nil {
		where = append(where, "start_at >= @startDate")
		args["startDate"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		where = append(where, "end_at <= @endDate")
		args["endDate"] = *filter.EndDate
	}
	if filter.Status != nil {
		where = append(where, "status = @status")
		args["status"] = string(*filter.Status)
	}
	if filter.Source != nil {
		where = append(where, "source = @source")
		args["source"] = string(*filter.Source)
	}
	if filter.Search != "" {
		where = append(where, "to_tsvector('english', title || ' ' || description) @@ plainto_tsquery('english', @search)")
		args["search"] = filter.Search
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM events WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	args["limit"] = limit
	args["offset"] = (page - 1) * limit
	q := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY start_at ASC LIMIT @limit OFFSET @offset`, eventColumns, whereClause)
	rows, err := r.pool.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepo) GetByID(ctx context.Context, ownerUserID, id string) (*Event, error) {
	defer observeDB(ctx, "events.get_by_id")()
	q := fmt.Sprintf(`SELECT %s FROM events WHERE owner_user_id = $1 AND id = $2`, eventColumns)
	event, err := scanEvent(r.pool.QueryRow(ctx, q, ownerUserID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func (r *eventRepo) GetByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) (*Event, error) {
	defer observeDB(ctx, "events.get_by_upstream_id")()
	q := fmt.Sprintf(`SELECT %s FROM events WHERE owner_user_id = $1 AND upstream_event_id = $2`, eventColumns)
	event, err := scanEvent(r.pool.QueryRow(ctx, q, ownerUserID, upstreamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func (r *eventRepo) Create(ctx context.Context, event Event) (*Event, error) {
	defer observeDB(ctx, "events.create")()
	attendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return nil, fmt.Errorf("marshal attendees: %w", err)
	}
	q := fmt.Sprintf(`
INSERT INTO events (owner_user_id, upstream_event_id, title, description, start_at, end_at,
	location, attendees, all_day, timezone, status, source)
VALUES (@owner, @upstreamID, @title, @description, @start, @end, @location, @attendees, @allDay, @timezone, @status, @source)
RETURNING %s`, eventColumns)
	row := r.pool.QueryRow(ctx, q, pgx.NamedArgs{
		"owner":       event.OwnerUserID,
		"upstreamID":  event.UpstreamEventID,
		"title":       event.Title,
		"description": event.Description,
		"start":       event.Start,
		"end":         event.End,
		"location":    event.Location,
		"attendees":   attendees,
		"allDay":      event.AllDay,
		"timezone":    event.Timezone,
		"status":      string(event.Status),
		"source":      string(event.Source),
	})
	created, err := scanEvent(row)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	return created, err
}

func (r *eventRepo) Update(ctx context.Context, ownerUserID, id string, patch EventPatch) (*Event, error) {
	defer observeDB(ctx, "events.update")()

	var sets []string
	args := pgx.NamedArgs{"owner": ownerUserID, "id": id}

	if patch.Title != nil {
		sets = append(sets, "title = @title")
		args["title"] = *patch.Title
	}
	if patch.Description != nil {
		sets = append(sets, "description = @description")
		args["description"] = *patch.Description
	}
	if patch.Start != nil {
		sets = append(sets, "start_at = @start")
		args["start"] = *patch.Start
	}
	if patch.End != nil {
		sets = append(sets, "end_at = @end")
		args["end"] = *patch.End
	}
	if patch.Location != nil {
		sets = append(sets, "location = @location")
		args["location"] = *patch.Location
	}
	if patch.Attendees != nil {
		attendees, err := json.Marshal(*patch.Attendees)
		if err != nil {
			return nil, fmt.Errorf("marshal attendees: %w", err)
		}
		sets = append(sets, "attendees = @attendees")
		args["attendees"] = attendees
	}
	if patch.AllDay != nil {
		sets = append(sets, "all_day = @allDay")
		args["allDay"] = *patch.AllDay
	}
	if patch.Timezone != nil {
		sets = append(sets, "timezone = @timezone")
		args["timezone"] = *patch.Timezone
	}
	if patch.Status != nil {
		sets = append(sets, "status = @status")
		args["status"] = string(*patch.Status)
	}
	if patch.Source != nil {
		sets = append(sets, "source = @source")
		args["source"] = string(*patch.Source)
	}
	sets = append(sets, "updated_at = NOW()", "last_modified = NOW()")

	q := fmt.Sprintf(`UPDATE events SET %s WHERE owner_user_id = @owner AND id = @id RETURNING %s`,
		strings.Join(sets, ", "), eventColumns)
	event, err := scanEvent(r.pool.QueryRow(ctx, q, args))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func (r *eventRepo) Delete(ctx context.Context, ownerUserID, id string) error {
	defer observeDB(ctx, "events.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE owner_user_id = $1 AND id = $2`, ownerUserID, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepo) DeleteByUpstreamID(ctx context.Context, ownerUserID, upstreamID string) error {
	defer observeDB(ctx, "events.delete_by_upstream_id")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE owner_user_id = $1 AND upstream_event_id = $2`, ownerUserID, upstreamID)
	if err != nil {
		return fmt.Errorf("delete event by upstream id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepo) UpsertByUpstreamID(ctx context.Context, ownerUserID, upstreamID string, event Event) (*Event, error) {
	defer observeDB(ctx, "events.upsert_by_upstream_id")()
	attendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return nil, fmt.Errorf("marshal attendees: %w", err)
	}
	q := fmt.Sprintf(`
INSERT INTO events (owner_user_id, upstream_event_id, title, description, start_at, end_at,
	location, attendees, all_day, timezone, status, source)
VALUES (@owner, @upstreamID, @title, @description, @start, @end, @location, @attendees, @allDay, @timezone, @status, @source)
ON CONFLICT (owner_user_id, upstream_event_id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	start_at = EXCLUDED.start_at,
	end_at = EXCLUDED.end_at,
	location = EXCLUDED.location,
	attendees = EXCLUDED.attendees,
	all_day = EXCLUDED.all_day,
	timezone = EXCLUDED.timezone,
	status = EXCLUDED.status,
	updated_at = NOW(),
	last_modified = NOW()
RETURNING %s`, eventColumns)
	row := r.pool.QueryRow(ctx, q, pgx.NamedArgs{
		"owner":       ownerUserID,
		"upstreamID":  upstreamID,
		"title":       event.Title,
		"description": event.Description,
		"start":       event.Start,
		"end":         event.End,
		"location":    event.Location,
		"attendees":   attendees,
		"allDay":      event.AllDay,
		"timezone":    event.Timezone,
		"status":      string(event.Status),
		"source":      string(event.Source),
	})
	return scanEvent(row)
}

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	var attendees []byte
	if err := row.Scan(&e.ID, &e.OwnerUserID, &e.UpstreamEventID, &e.Title, &e.Description, &e.Start, &e.End,
		&e.Location, &attendees, &e.AllDay, &e.Timezone, &e.Status, &e.Source, &e.CreatedAt, &e.UpdatedAt, &e.LastModified); err != nil {
		return nil, err
	}
	if len(attendees) > 0 {
		if err := json.Unmarshal(attendees, &e.Attendees); err != nil {
			return nil, fmt.Errorf("unmarshal attendees: %w", err)
		}
	}
	return &e, nil
}

// syncCursorRepo implements SyncCursorRepository.
type syncCursorRepo struct {
	pool *pgxpool.Pool
}

func (r *syncCursorRepo) Get(ctx context.Context, userID string) (*SyncCursor, error) {
	defer observeDB(ctx, "sync_cursors.get")()
	const q = `
SELECT owner_user_id, next_sync_token, last_successful_sync, full_sync_completed,
	sync_in_progress, last_error, consecutive_errors, sync_started_at
FROM sync_cursors WHERE owner_user_id = $1`
	cursor, err := scanSyncCursor(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cursor, err
}

// TryStart performs the false->true sync-in-progress transition atomically,
// creating the cursor row on first use. It returns false without error when
// a sync is already running for this user.
func (r *syncCursorRepo) TryStart(ctx context.Context, userID string) (bool, error) {
	defer observeDB(ctx, "sync_cursors.try_start")()
	const q = `
INSERT INTO sync_cursors (owner_user_id, sync_in_progress, sync_started_at)
VALUES ($1, TRUE, NOW())
ON CONFLICT (owner_user_id) DO UPDATE SET
	sync_in_progress = TRUE,
	sync_started_at = NOW()
WHERE sync_cursors.sync_in_progress = FALSE
RETURNING owner_user_id`
	var id string
	err := r.pool.QueryRow(ctx, q, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("try start sync: %w", err)
	}
	return true, nil
}

func (r *syncCursorRepo) CompleteSuccess(ctx context.Context, userID, nextSyncToken string, fullSyncCompleted bool) error {
	defer observeDB(ctx, "sync_cursors.complete_success")()
	const q = `
UPDATE sync_cursors SET
	next_sync_token = @token,
	full_sync_completed = @completed,
	last_successful_sync = NOW(),
	sync_in_progress = FALSE,
	last_error = '',
	consecutive_errors = 0,
	sync_started_at = NULL
WHERE owner_user_id = @owner`
	_, err := r.pool.Exec(ctx, q, pgx.NamedArgs{"token": nextSyncToken, "completed": fullSyncCompleted, "owner": userID})
	if err != nil {
		return fmt.Errorf("complete sync success: %w", err)
	}
	return nil
}

func (r *syncCursorRepo) CompleteFailure(ctx context.Context, userID, errMsg string) error {
	defer observeDB(ctx, "sync_cursors.complete_failure")()
	const q = `
UPDATE sync_cursors SET
	sync_in_progress = FALSE,
	last_error = @errMsg,
	consecutive_errors = consecutive_errors + 1,
	sync_started_at = NULL
WHERE owner_user_id = @owner`
	_, err := r.pool.Exec(ctx, q, pgx.NamedArgs{"errMsg": errMsg, "owner": userID})
	if err != nil {
		return fmt.Errorf("complete sync failure: %w", err)
	}
	return nil
}

func (r *syncCursorRepo) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	defer observeDB(ctx, "sync_cursors.sweep_stuck")()
	const q = `
UPDATE sync_cursors SET
	sync_in_progress = FALSE,
	last_error = 'reset by operator sweep: exceeded max sync duration',
	sync_started_at = NULL
WHERE sync_in_progress = TRUE AND sync_started_at < @cutoff`
	tag, err := r.pool.Exec(ctx, q, pgx.NamedArgs{"cutoff": time.Now().Add(-olderThan)})
	if err != nil {
		return 0, fmt.Errorf("sweep stuck syncs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *syncCursorRepo) ListEligibleForScheduledSync(ctx context.Context, maxConsecutiveErrors int) ([]string, error) {
	defer observeDB(ctx, "sync_cursors.list_eligible")()
	const q = `
SELECT owner_user_id FROM sync_cursors
WHERE sync_in_progress = FALSE AND consecutive_errors < $1
UNION
SELECT id FROM users WHERE id NOT IN (SELECT owner_user_id FROM sync_cursors)`
	rows, err := r.pool.Query(ctx, q, maxConsecutiveErrors)
	if err != nil {
		return nil, fmt.Errorf("list eligible syncs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSyncCursor(row pgx.Row) (*SyncCursor, error) {
	var c SyncCursor
	if err := row.Scan(&c.OwnerUserID, &c.NextSyncToken, &c.LastSuccessfulSync, &c.FullSyncCompleted,
		&c.SyncInProgress, &c.LastError, &c.ConsecutiveErrors, &c.SyncStartedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// oauthStateRepo implements OAuthStateRepository.
type oauthStateRepo struct {
	pool *pgxpool.Pool
}

func (r *oauthStateRepo) Create(ctx context.Context, state OAuthState) error {
	defer observeDB(ctx, "oauth_states.create")()
	const q = `INSERT INTO oauth_states (state, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, state.State, state.UserID, state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create oauth state: %w", err)
	}
	return nil
}

// Consume looks up and deletes a state row in one step, returning
// ErrNotFound when it is absent or already expired.
func (r *oauthStateRepo) Consume(ctx context.Context, state string) (*OAuthState, error) {
	defer observeDB(ctx, "oauth_states.consume")()
	const q = `
DELETE FROM oauth_states WHERE state = $1 AND expires_at > NOW()
RETURNING state, user_id, expires_at`
	var s OAuthState
	err := r.pool.QueryRow(ctx, q, state).Scan(&s.State, &s.UserID, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	return &s, nil
}

func (r *oauthStateRepo) GC(ctx context.Context, before time.Time) (int, error) {
	defer observeDB(ctx, "oauth_states.gc")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_states WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("gc oauth states: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// webhookRepo implements WebhookSubscriptionRepository.
type webhookRepo struct {
	pool *pgxpool.Pool
}

const webhookColumns = `id, owner_user_id, upstream_resource_id, channel_id, verification_token,
	resource_uri, expires_at, active, created_at`

func (r *webhookRepo) Create(ctx context.Context, sub WebhookSubscription) (*WebhookSubscription, error) {
	defer observeDB(ctx, "webhooks.create")()
	q := fmt.Sprintf(`
INSERT INTO webhook_subscriptions (owner_user_id, upstream_resource_id, channel_id, verification_token, resource_uri, expires_at)
VALUES (@owner, @resourceID, @channelID, @token, @uri, @expiry)
RETURNING %s`, webhookColumns)
	row := r.pool.QueryRow(ctx, q, pgx.NamedArgs{
		"owner":      sub.OwnerUserID,
		"resourceID": sub.UpstreamResourceID,
		"channelID":  sub.ChannelID,
		"token":      sub.VerificationToken,
		"uri":        sub.ResourceURI,
		"expiry":     sub.ExpiresAt,
	})
	created, err := scanWebhook(row)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	return created, err
}

func (r *webhookRepo) FindActiveByChannelAndResource(ctx context.Context, channelID, resourceID string) (*WebhookSubscription, error) {
	defer observeDB(ctx, "webhooks.find_active")()
	q := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE channel_id = $1 AND upstream_resource_id = $2 AND active`, webhookColumns)
	sub, err := scanWebhook(r.pool.QueryRow(ctx, q, channelID, resourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (r *webhookRepo) GetByChannelID(ctx context.Context, ownerUserID, channelID string) (*WebhookSubscription, error) {
	defer observeDB(ctx, "webhooks.get_by_channel")()
	q := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE owner_user_id = $1 AND channel_id = $2`, webhookColumns)
	sub, err := scanWebhook(r.pool.QueryRow(ctx, q, ownerUserID, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (r *webhookRepo) Deactivate(ctx context.Context, id string) error {
	defer observeDB(ctx, "webhooks.deactivate")()
	tag, err := r.pool.Exec(ctx, `UPDATE webhook_subscriptions SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *webhookRepo) DeactivateByChannelID(ctx context.Context, channelID string) error {
	defer observeDB(ctx, "webhooks.deactivate_by_channel")()
	tag, err := r.pool.Exec(ctx, `UPDATE webhook_subscriptions SET active = FALSE WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("deactivate webhook by channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *webhookRepo) ListExpired(ctx context.Context, before time.Time) ([]WebhookSubscription, error) {
	defer observeDB(ctx, "webhooks.list_expired")()
	q := fmt.Sprintf(`SELECT %s FROM webhook_subscriptions WHERE active AND expires_at < $1`, webhookColumns)
	rows, err := r.pool.Query(ctx, q, before)
	if err != nil {
		return nil, fmt.Errorf("list expired webhooks: %w", err)
	}
	defer rows.Close()

	var subs []WebhookSubscription
	for rows.Next() {
		sub, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanWebhook(row pgx.Row) (*WebhookSubscription, error) {
	var w WebhookSubscription
	if err := row.Scan(&w.ID, &w.OwnerUserID, &w.UpstreamResourceID, &w.ChannelID, &w.VerificationToken,
		&w.ResourceURI, &w.ExpiresAt, &w.Active, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLSTATE 23505")
}
