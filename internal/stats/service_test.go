package stats

import (
	"context"
	"testing"
	"time"

	"phonebridge/internal/popup"
)

func seed(t *testing.T, store popup.Store, callID string, status popup.Status, ms int) {
	t.Helper()
	rec, err := store.Create(context.Background(), popup.Record{
		CallID:     callID,
		ZohoUserID: "zuser-1",
		Status:     status,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ms > 0 {
		rec.ResponseTimeMS = &ms
		if err := store.Update(context.Background(), rec); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
}

func TestPopupStats(t *testing.T) {
	store := popup.NewMemoryStore()
	seed(t, store, "c1", popup.StatusSent, 120)
	seed(t, store, "c2", popup.StatusSent, 80)
	seed(t, store, "c3", popup.StatusDuplicate, 0)
	seed(t, store, "c4", popup.StatusFailed, 0)

	svc := NewService(store)
	got, err := svc.Popups(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Popups: %v", err)
	}

	if got.Total != 4 {
		t.Fatalf("total = %d, want 4", got.Total)
	}
	if got.ByStatus[popup.StatusSent] != 2 {
		t.Fatalf("sent = %d, want 2", got.ByStatus[popup.StatusSent])
	}
	if got.SuccessRate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", got.SuccessRate)
	}
	if got.AvgResponseTimeMS != 100 {
		t.Fatalf("avg response time = %v, want 100", got.AvgResponseTimeMS)
	}
}

func TestPopupStatsEmptyWindow(t *testing.T) {
	svc := NewService(popup.NewMemoryStore())
	got, err := svc.Popups(context.Background(), 0)
	if err != nil {
		t.Fatalf("Popups: %v", err)
	}
	if got.Total != 0 || got.SuccessRate != 0 {
		t.Fatalf("want zeros, got %+v", got)
	}
	if got.WindowHours != 24 {
		t.Fatalf("window defaulted to %v hours, want 24", got.WindowHours)
	}
}
