package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

// GoogleProvider implements Provider against the real Google Calendar API.
// A fresh *calendar.Service is built per call from the caller-supplied
// access token rather than cached, since the Token Manager (not this
// package) owns token lifetime and may have refreshed between calls.
type GoogleProvider struct{}

// NewGoogleProvider constructs a GoogleProvider. It takes no configuration
// of its own; every call is parameterized by the access token the Token
// Manager hands it.
func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{}
}

func (p *GoogleProvider) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("provider: build calendar service: %w", err)
	}
	return svc, nil
}

func (p *GoogleProvider) ListEvents(ctx context.Context, accessToken string, opts ListEventsOptions) (*EventPage, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(primaryCalendarID).
		SingleEvents(true).
		Context(ctx)

	if opts.SyncToken != "" {
		call = call.SyncToken(opts.SyncToken)
	} else {
		call = call.OrderBy("startTime")
		if opts.TimeMin != nil {
			call = call.TimeMin(opts.TimeMin.Format(rfc3339))
		}
		if opts.TimeMax != nil {
			call = call.TimeMax(opts.TimeMax.Format(rfc3339))
		}
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	items := make([]UpstreamEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		items = append(items, toUpstreamEvent(item))
	}

	return &EventPage{
		Items:         items,
		NextPageToken: resp.NextPageToken,
		NextSyncToken: resp.NextSyncToken,
	}, nil
}

func (p *GoogleProvider) InsertEvent(ctx context.Context, accessToken string, input UpstreamEventInput) (*UpstreamEvent, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	created, err := svc.Events.Insert(primaryCalendarID, toGoogleEvent(input)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := toUpstreamEvent(created)
	return &out, nil
}

func (p *GoogleProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, input UpstreamEventInput) (*UpstreamEvent, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	updated, err := svc.Events.Update(primaryCalendarID, eventID, toGoogleEvent(input)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := toUpstreamEvent(updated)
	return &out, nil
}

func (p *GoogleProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return err
	}
	return svc.Events.Delete(primaryCalendarID, eventID).Context(ctx).Do()
}

func (p *GoogleProvider) Watch(ctx context.Context, accessToken string, req WatchRequest) (*WatchResult, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	channel := &calendar.Channel{
		Id:      req.ChannelID,
		Type:    "web_hook",
		Address: req.Address,
		Token:   req.Token,
	}
	if req.ExpirySeconds > 0 {
		channel.Expiration = nowMillis() + req.ExpirySeconds*1000
	}

	resp, err := svc.Events.Watch(primaryCalendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	return &WatchResult{
		ResourceID: resp.ResourceId,
		Expiration: millisToTime(resp.Expiration),
	}, nil
}

func (p *GoogleProvider) StopWatch(ctx context.Context, accessToken, channelID, resourceID string) error {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return err
	}
	return svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
}
