// Package webhook is the Webhook Demultiplexer: it resolves inbound push
// notifications to the owning user by channel id and verification token
// rather than the user session, and triggers a capped incremental sync.
package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
)

// ErrUnrecognizedChannel covers a notification whose channel id/resource
// id/token do not match an active subscription. The HTTP handler still
// answers 200 for this (per spec §4.8, to avoid the upstream retry-storm),
// it only affects whether a sync is triggered.
var ErrUnrecognizedChannel = errors.New("webhook: unrecognized channel or token")

// syncer is the subset of *sync.Engine this package depends on.
type syncer interface {
	Run(ctx context.Context, userID string, opts sync.Options) (*sync.Result, error)
}

// tokenSource is the subset of *token.Manager this package depends on.
type tokenSource interface {
	EnsureValid(ctx context.Context, userID string) (string, error)
}

// Demultiplexer implements inbound notification handling plus the
// subscribe/unsubscribe lifecycle for WebhookSubscription rows.
type Demultiplexer struct {
	subs     store.WebhookSubscriptionRepository
	syncer   syncer
	provider provider.Provider
	tokens   tokenSource
}

// New wires a Demultiplexer.
func New(subs store.WebhookSubscriptionRepository, syncer syncer, p provider.Provider, tokens tokenSource) *Demultiplexer {
	return &Demultiplexer{subs: subs, syncer: syncer, provider: p, tokens: tokens}
}

// HandleNotification resolves n to its owning subscription, verifies the
// channel token, and — for resource states that indicate a change —
// triggers a capped incremental sync. It never returns an error for a
// condition the caller should surface as anything other than HTTP 200;
// callers that want to distinguish "nothing to do" from "resolved and
// synced" can inspect the returned bool.
func (d *Demultiplexer) HandleNotification(ctx context.Context, n Notification) (bool, error) {
	sub, err := d.subs.FindActiveByChannelAndResource(ctx, n.ChannelID, n.ResourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrUnrecognizedChannel
		}
		return false, err
	}
	if sub.VerificationToken != n.ChannelToken {
		return false, ErrUnrecognizedChannel
	}

	if !resourceStatesTriggeringSync[n.ResourceState] {
		return false, nil
	}

	_, err = d.syncer.Run(ctx, sub.OwnerUserID, sync.Options{MaxResults: notificationIncrementalSyncCap})
	if err != nil && !errors.Is(err, sync.ErrAlreadyRunning) {
		return false, err
	}
	return true, nil
}

// Subscribe establishes a new push channel upstream and persists the
// binding. address is the HTTPS callback URL the upstream will notify.
func (d *Demultiplexer) Subscribe(ctx context.Context, userID, address string, ttlSeconds int64) (*store.WebhookSubscription, error) {
	accessToken, err := d.tokens.EnsureValid(ctx, userID)
	if err != nil {
		return nil, err
	}

	channelID := uuid.NewString()
	verificationToken := uuid.NewString()

	result, err := d.provider.Watch(ctx, accessToken, provider.WatchRequest{
		ChannelID:     channelID,
		Address:       address,
		Token:         verificationToken,
		ExpirySeconds: ttlSeconds,
	})
	if err != nil {
		return nil, err
	}

	return d.subs.Create(ctx, store.WebhookSubscription{
		OwnerUserID:        userID,
		UpstreamResourceID: result.ResourceID,
		ChannelID:          channelID,
		VerificationToken:  verificationToken,
		ResourceURI:        address,
		ExpiresAt:          result.Expiration,
		Active:             true,
	})
}

// Unsubscribe tears down the upstream channel and deactivates the local
// row. The upstream call is best-effort: a failure there (channel already
// expired, say) still deactivates the local row so it stops being matched.
func (d *Demultiplexer) Unsubscribe(ctx context.Context, userID string, sub store.WebhookSubscription) error {
	accessToken, err := d.tokens.EnsureValid(ctx, userID)
	if err == nil {
		_ = d.provider.StopWatch(ctx, accessToken, sub.ChannelID, sub.UpstreamResourceID)
	}
	return d.subs.Deactivate(ctx, sub.ID)
}

// UnsubscribeByChannelID looks up the caller's subscription by channel id
// and tears it down, for the HTTP unsubscribe endpoint. ErrNotFound if the
// channel does not belong to userID.
func (d *Demultiplexer) UnsubscribeByChannelID(ctx context.Context, userID, channelID string) error {
	sub, err := d.subs.GetByChannelID(ctx, userID, channelID)
	if err != nil {
		return err
	}
	return d.Unsubscribe(ctx, userID, *sub)
}

// SweepExpired deactivates subscriptions past their upstream expiry so
// stale rows stop matching incoming notifications. Called from the
// background sweeper alongside the Sync Engine's ResetStuckSyncs.
func (d *Demultiplexer) SweepExpired(ctx context.Context, before time.Time) (int, error) {
	expired, err := d.subs.ListExpired(ctx, before)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, sub := range expired {
		if err := d.subs.Deactivate(ctx, sub.ID); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}
