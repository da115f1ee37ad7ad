package writethrough

import (
	"time"

	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/store"
)

// toUpstreamInput builds the complete upstream payload the provider
// requires, from the merged local event (already validated by the caller).
// The upstream requires a full representation on every write, so this is
// always built from the already-merged event, never a sparse patch.
func toUpstreamInput(event store.Event) provider.UpstreamEventInput {
	return provider.UpstreamEventInput{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       toUpstreamEventTime(event.Start, event.AllDay, event.Timezone),
		End:         toUpstreamEventTime(event.End, event.AllDay, event.Timezone),
		Attendees:   toUpstreamAttendees(event.Attendees),
		Status:      string(event.Status),
	}
}

func toUpstreamEventTime(t time.Time, allDay bool, timezone string) provider.EventTime {
	if allDay {
		date := t.Format("2006-01-02")
		return provider.EventTime{Date: &date}
	}
	return provider.EventTime{DateTime: &t, TimeZone: timezone}
}

func toUpstreamAttendees(in []store.Attendee) []provider.Attendee {
	if in == nil {
		return nil
	}
	out := make([]provider.Attendee, 0, len(in))
	for _, a := range in {
		out = append(out, provider.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Optional:       a.Optional,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return out
}
