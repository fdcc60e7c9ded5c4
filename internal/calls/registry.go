package calls

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("call not found")

// Initial carries the fields known at call creation (Newchannel time).
type Initial struct {
	Extension    string
	Direction    Direction
	CallerNumber string
	CalledNumber string
	StartTime    time.Time
}

// Merge carries fields applied on a transition regardless of whether the
// state itself advances. Hangup must land end_time/duration even when the
// stored state is already terminal.
type Merge struct {
	EndTime         *time.Time
	DurationSeconds *int
	AppendNote      string
	RecordingURL    string
}

// Registry is the durable store of call records keyed by provider call id.
//
// GetOrCreate must be atomic with respect to concurrent webhook deliveries
// for the same call id: exactly one creation succeeds, the loser observes
// created=false with the already-created record.
//
// Transition applies Merge unconditionally but only advances State per the
// monotonic rank rule; regressions are absorbed silently, not errors.
type Registry interface {
	GetOrCreate(ctx context.Context, callID string, init Initial) (CallRecord, bool, error)
	Transition(ctx context.Context, callID string, newState State, m Merge) (CallRecord, error)
	Find(ctx context.Context, callID string) (CallRecord, error)

	// SetEnrichment stores the normalized phone, CRM contact snapshot and
	// prior-call count produced by enrichment.
	SetEnrichment(ctx context.Context, callID, normalizedPhone string, contact *ContactSnapshot, historyCount int) error

	// MarkPopupSent flags that at least one popup went out for this call.
	MarkPopupSent(ctx context.Context, callID string) error

	// CountCompletedByPhone counts prior completed calls for a normalized
	// number; feeds the popup's call-history block.
	CountCompletedByPhone(ctx context.Context, normalizedPhone string) (int, error)

	// ListRecent returns the newest records for the admin API.
	ListRecent(ctx context.Context, limit int) ([]CallRecord, error)
}
