package popup

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("popup record not found")
	ErrDuplicate = errors.New("popup record already exists for this call and user")
)

// Store persists popup attempts keyed by the composite (call_id, zoho_user_id).
type Store interface {
	// Create inserts a new record; ErrDuplicate when the pair exists.
	Create(ctx context.Context, rec Record) (Record, error)

	// Get returns the record for the pair, or ErrNotFound.
	Get(ctx context.Context, callID, zohoUserID string) (Record, error)

	// Update overwrites the mutable fields of the pair's record.
	Update(ctx context.Context, rec Record) error

	// ListByCallAndStatus returns all records for a call in the given status.
	ListByCallAndStatus(ctx context.Context, callID string, status Status) ([]Record, error)

	// ListRetryable returns up to limit retry-state records, oldest
	// first. Records past the retry bound are excluded; a record at the
	// bound is returned once more so the sweep can mark it failed.
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]Record, error)

	// CountByStatusSince aggregates record counts per status in a window.
	CountByStatusSince(ctx context.Context, since time.Time) (map[Status]int, error)

	// AvgResponseTimeSince averages response_time_ms over the window,
	// ignoring records without one. Zero when none qualify.
	AvgResponseTimeSince(ctx context.Context, since time.Time) (float64, error)
}
