package sync

import "github.com/jw6ventures/gcalsync/internal/store"

// ErrAlreadyRunning is returned when a sync is requested for a user whose
// cursor is already mid-sync; the caller aborts rather than queuing.
var ErrAlreadyRunning = store.ErrSyncAlreadyRunning
