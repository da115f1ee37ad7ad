package sync

import (
	"time"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/store"
)

// toLocalEvent maps a sanitized upstream event onto the local replica shape
// per the upstream->local field mapping: summary->title,
// start.dateTime|start.date->start (mirrored for end, all-day when only a
// date is present), attendees passed through, timezone from start.TimeZone
// or UTC.
func toLocalEvent(ownerUserID string, up provider.UpstreamEvent) store.Event {
	start, allDay := eventTimeToInstant(up.Start)
	end, _ := eventTimeToInstant(up.End)

	tz := up.Start.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	upstreamID := up.ID
	return store.Event{
		OwnerUserID:     ownerUserID,
		UpstreamEventID: &upstreamID,
		Title:           up.Summary,
		Description:     up.Description,
		Location:        up.Location,
		Start:           start,
		End:             end,
		Attendees:       toLocalAttendees(up.Attendees),
		AllDay:          allDay,
		Timezone:        tz,
		Status:          toLocalStatus(up.Status),
		Source:          store.EventSourceUpstream,
		LastModified:    up.Updated,
	}
}

func eventTimeToInstant(t provider.EventTime) (time.Time, bool) {
	if t.IsAllDay() {
		parsed, err := time.Parse("2006-01-02", *t.Date)
		if err != nil {
			return time.Time{}, true
		}
		return parsed, true
	}
	if t.DateTime != nil {
		return *t.DateTime, false
	}
	return time.Time{}, false
}

func toLocalAttendees(in []provider.Attendee) []store.Attendee {
	if in == nil {
		return nil
	}
	out := make([]store.Attendee, 0, len(in))
	for _, a := range in {
		out = append(out, store.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Optional:       a.Optional,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return out
}

func toLocalStatus(upstreamStatus string) store.EventStatus {
	switch upstreamStatus {
	case "tentative":
		return store.EventStatusTentative
	case "cancelled":
		return store.EventStatusCancelled
	default:
		return store.EventStatusConfirmed
	}
}
