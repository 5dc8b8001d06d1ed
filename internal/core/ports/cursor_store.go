package ports

import "context"

// CursorStore keeps how far a log consumer has durably processed the event log. A cursor is
// a global position: every event at or below it is done for that consumer.
type CursorStore interface {
	// Load returns the saved position of name, or 0 when none was saved yet.
	Load(ctx context.Context, name string) (uint64, error)
	// Save records position for name. Positions only move forward; a lower position than
	// the stored one is ignored.
	Save(ctx context.Context, name string, position uint64) error
}
