package stats

import (
	"context"
	"time"

	"phonebridge/internal/popup"
)

// PopupStats summarizes popup delivery health over a trailing window.
type PopupStats struct {
	WindowHours       float64              `json:"window_hours"`
	Total             int                  `json:"total"`
	ByStatus          map[popup.Status]int `json:"by_status"`
	SuccessRate       float64              `json:"success_rate"`
	AvgResponseTimeMS float64              `json:"avg_response_time_ms"`
}

type Service struct {
	store popup.Store
}

func NewService(store popup.Store) *Service {
	return &Service{store: store}
}

// Popups aggregates popup outcomes since now-window. Duplicates count
// toward the success rate: the popup reached a screen, just not twice.
func (s *Service) Popups(ctx context.Context, window time.Duration) (PopupStats, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := time.Now().Add(-window)

	byStatus, err := s.store.CountByStatusSince(ctx, since)
	if err != nil {
		return PopupStats{}, err
	}
	avg, err := s.store.AvgResponseTimeSince(ctx, since)
	if err != nil {
		return PopupStats{}, err
	}

	out := PopupStats{
		WindowHours:       window.Hours(),
		ByStatus:          byStatus,
		AvgResponseTimeMS: avg,
	}
	for _, n := range byStatus {
		out.Total += n
	}
	if out.Total > 0 {
		delivered := byStatus[popup.StatusSent] + byStatus[popup.StatusDuplicate]
		out.SuccessRate = float64(delivered) / float64(out.Total)
	}
	return out, nil
}
