package session

import "context"

// PaidSet is the set of segment IDs a single session has paid for.
// Membership is monotonic: entries are added, never removed, for the life
// of the session. Implementations must be safe for concurrent use,
// including two racing Adds for the same segment.
type PaidSet interface {
	// Add marks a segment as paid. Adding an already-present segment is a
	// no-op, not an error.
	Add(ctx context.Context, segmentID string) error

	// Contains reports whether the segment has been paid for.
	Contains(ctx context.Context, segmentID string) (bool, error)
}

// Store maps session IDs to their paid-sets. One session owns exactly one
// paid-set; paid-sets are never shared between sessions.
type Store interface {
	// PaidSet returns the paid-set for the session, creating an empty one
	// if the session has not been seen before.
	PaidSet(ctx context.Context, sessionID string) (PaidSet, error)
}
