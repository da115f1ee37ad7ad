package store

import "errors"

// ErrNotFound indicates a missing or unauthorized resource lookup.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a unique-constraint violation, e.g. a duplicate
// (owner, upstream id) pair.
var ErrConflict = errors.New("conflict")

// ErrSyncAlreadyRunning indicates a failed sync-in-progress transition.
var ErrSyncAlreadyRunning = errors.New("sync already running")
