package popup

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. It enforces the same
// (call_id, zoho_user_id) uniqueness as the Postgres schema.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*Record{}}
}

func key(callID, zohoUserID string) string {
	return callID + "|" + zohoUserID
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(rec.CallID, rec.ZohoUserID)
	if _, ok := s.records[k]; ok {
		return Record{}, ErrDuplicate
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	stored := rec
	s.records[k] = &stored
	return stored, nil
}

func (s *MemoryStore) Get(ctx context.Context, callID, zohoUserID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key(callID, zohoUserID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) Update(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[key(rec.CallID, rec.ZohoUserID)]
	if !ok {
		return ErrNotFound
	}
	stored.Status = rec.Status
	stored.Response = rec.Response
	stored.ResponseTimeMS = rec.ResponseTimeMS
	stored.RetryCount = rec.RetryCount
	stored.ErrorMessage = rec.ErrorMessage
	return nil
}

func (s *MemoryStore) ListByCallAndStatus(ctx context.Context, callID string, status Status) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Record{}
	for _, rec := range s.records {
		if rec.CallID == callID && rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRetryable(ctx context.Context, maxRetries, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Record{}
	for _, rec := range s.records {
		if rec.Status == StatusRetry && rec.RetryCount <= maxRetries {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountByStatusSince(ctx context.Context, since time.Time) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[Status]int{}
	for _, rec := range s.records {
		if !rec.SentAt.Before(since) {
			out[rec.Status]++
		}
	}
	return out, nil
}

func (s *MemoryStore) AvgResponseTimeSince(ctx context.Context, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, n := 0, 0
	for _, rec := range s.records {
		if rec.ResponseTimeMS != nil && !rec.SentAt.Before(since) {
			sum += *rec.ResponseTimeMS
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}
