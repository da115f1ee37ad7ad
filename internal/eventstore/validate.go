package eventstore

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/jw6ventures/gcalsync/internal/store"
)

// ValidateEvent enforces the invariants this layer owns: non-empty title,
// end not before start, a recognized status, and well-formed attendee
// emails. Exported so the Write-Through Mediator can validate a merged
// patch before sending it upstream, using the same rules.
func ValidateEvent(title string, start, end time.Time, attendees []store.Attendee, status store.EventStatus) error {
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidEvent)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end must not be before start", ErrInvalidEvent)
	}
	switch status {
	case store.EventStatusConfirmed, store.EventStatusTentative, store.EventStatusCancelled:
	default:
		return fmt.Errorf("%w: unrecognized status %q", ErrInvalidEvent, status)
	}
	for _, a := range attendees {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return fmt.Errorf("%w: attendee email %q is malformed", ErrInvalidEvent, a.Email)
		}
	}
	return nil
}
