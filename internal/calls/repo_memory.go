package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRegistry is an in-memory Registry for tests and early development.
// It mirrors the Postgres repo's transition semantics exactly.
type MemoryRegistry struct {
	mu      sync.Mutex
	records map[string]*CallRecord
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: map[string]*CallRecord{}}
}

func (r *MemoryRegistry) GetOrCreate(ctx context.Context, callID string, init Initial) (CallRecord, bool, error) {
	if callID == "" {
		return CallRecord{}, false, errors.New("call_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[callID]; ok {
		return *rec, false, nil
	}

	now := time.Now().UTC()
	rec := &CallRecord{
		CallID:       callID,
		Extension:    init.Extension,
		Direction:    init.Direction,
		CallerNumber: init.CallerNumber,
		CalledNumber: init.CalledNumber,
		State:        StateInitiated,
		StartTime:    init.StartTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.records[callID] = rec
	return *rec, true, nil
}

func (r *MemoryRegistry) Transition(ctx context.Context, callID string, newState State, m Merge) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callID]
	if !ok {
		return CallRecord{}, ErrNotFound
	}

	if newState.Rank() > rec.State.Rank() && !rec.State.Terminal() {
		rec.State = newState
	}
	if m.EndTime != nil {
		rec.EndTime = m.EndTime
	}
	if m.DurationSeconds != nil {
		rec.DurationSeconds = m.DurationSeconds
	}
	if m.RecordingURL != "" {
		rec.RecordingURL = m.RecordingURL
	}
	if m.AppendNote != "" {
		if rec.Notes == "" {
			rec.Notes = m.AppendNote
		} else {
			rec.Notes += "\n" + m.AppendNote
		}
	}
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}

func (r *MemoryRegistry) Find(ctx context.Context, callID string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callID]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return *rec, nil
}

func (r *MemoryRegistry) SetEnrichment(ctx context.Context, callID, normalizedPhone string, contact *ContactSnapshot, historyCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callID]
	if !ok {
		return ErrNotFound
	}
	rec.NormalizedPhone = normalizedPhone
	if contact != nil {
		rec.ContactID = contact.ID
		rec.ContactName = contact.Name
		rec.ContactCompany = contact.Company
		rec.ContactEmail = contact.Email
		rec.ContactType = contact.Type
	}
	rec.CallHistoryCount = historyCount
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRegistry) MarkPopupSent(ctx context.Context, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callID]
	if !ok {
		return ErrNotFound
	}
	rec.PopupSent = true
	return nil
}

func (r *MemoryRegistry) CountCompletedByPhone(ctx context.Context, normalizedPhone string) (int, error) {
	if normalizedPhone == "" {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.records {
		if rec.NormalizedPhone == normalizedPhone && rec.State == StateCompleted {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRegistry) ListRecent(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CallRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
