// Package state holds the pieces every tanker store shares.
//
// # Stores
//
// The session, location, customer-request and provider-pool stores each own
// one slice of application state. A store is the only writer of its slice;
// screens read it through Snapshot(), which returns copies of slices and
// pointers, so no caller can mutate store internals.
//
//	Screen intent:                 Store:
//	┌────────────────┐            ┌──────────────────────┐
//	│ AcceptRequest()│───────────→│ PUT /accept          │
//	│                │            │ remove from pool     │
//	│ Snapshot()     │←───────────│ (RWMutex)            │
//	└────────────────┘            └──────────────────────┘
//
// # Sync status
//
// Sync is embedded in every store snapshot. It carries the Loading flag
// (reset on every outcome), the human-readable message of the last failure,
// and a consecutive failure counter used by the refresher for backoff.
//
// # Superseded fetches
//
// Tracker hands out a generation ticket per fetch kind. Starting a newer
// fetch of the same kind cancels the older one's context, and Commit only
// runs the apply function for the newest ticket. This replaces
// last-response-wins races with last-request-wins. Mutations are never
// issued under a ticket, so a refresh never cancels a write.
//
// Local optimistic changes (accept, decline, confirm delivery) call
// Invalidate so a fetch that started before the change cannot resurrect
// stale data. The next authoritative fetch overwrites any optimistic guess.
//
// # Errors
//
// ErrMissingCredentials marks calls that were not attempted because no uid or
// token was available. ErrUnknownOutcome marks mutate-then-refetch sequences
// whose mutation succeeded but whose refetch failed. ErrConflict marks a 409
// from the backend.
package state
