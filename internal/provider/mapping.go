package provider

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const rfc3339 = time.RFC3339

// toUpstreamEvent coerces the Google API's loosely-typed Event into the
// sanitized UpstreamEvent shape. Unknown/unused upstream fields (recurrence,
// conferencing data, extended properties, ...) are ignored by design; the
// service has no use for them.
func toUpstreamEvent(e *calendar.Event) UpstreamEvent {
	out := UpstreamEvent{
		ID:          e.Id,
		Status:      e.Status,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       toEventTime(e.Start),
		End:         toEventTime(e.End),
	}
	if e.Updated != "" {
		if t, err := time.Parse(rfc3339, e.Updated); err == nil {
			out.Updated = t
		}
	}
	for _, a := range e.Attendees {
		if a == nil || a.Email == "" {
			continue
		}
		out.Attendees = append(out.Attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Optional:       a.Optional,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return out
}

func toEventTime(t *calendar.EventDateTime) EventTime {
	if t == nil {
		return EventTime{}
	}
	out := EventTime{TimeZone: t.TimeZone}
	if t.DateTime != "" {
		if parsed, err := time.Parse(rfc3339, t.DateTime); err == nil {
			out.DateTime = &parsed
		}
	} else if t.Date != "" {
		date := t.Date
		out.Date = &date
	}
	return out
}

func toGoogleEvent(input UpstreamEventInput) *calendar.Event {
	ev := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       fromEventTime(input.Start),
		End:         fromEventTime(input.End),
	}
	if input.Status != "" {
		ev.Status = input.Status
	}
	for _, a := range input.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Optional:       a.Optional,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return ev
}

func fromEventTime(t EventTime) *calendar.EventDateTime {
	out := &calendar.EventDateTime{TimeZone: t.TimeZone}
	switch {
	case t.DateTime != nil:
		out.DateTime = t.DateTime.Format(rfc3339)
	case t.Date != nil:
		out.Date = *t.Date
	}
	return out
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func millisToTime(millis int64) time.Time {
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
