package calls

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStateRanks(t *testing.T) {
	order := []State{StateInitiated, StateRinging, StateConnected, StateCompleted}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("expected %q to outrank %q", order[i], order[i-1])
		}
	}
	for _, s := range []State{StateCompleted, StateFailed, StateBusy, StateNoAnswer} {
		if !s.Terminal() {
			t.Fatalf("expected %q terminal", s)
		}
		if s.Rank() != StateCompleted.Rank() {
			t.Fatalf("expected all terminal states to share a rank")
		}
	}
	if StateConnected.Terminal() {
		t.Fatalf("connected must not be terminal")
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	init := Initial{Extension: "101", Direction: DirectionInbound, CallerNumber: "0712345678", StartTime: time.Now()}

	first, created, err := r.GetOrCreate(ctx, "C1", init)
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	if first.State != StateInitiated {
		t.Fatalf("expected initiated, got %q", first.State)
	}

	second, created, err := r.GetOrCreate(ctx, "C1", Initial{Extension: "999"})
	if err != nil || created {
		t.Fatalf("expected existing record, got created=%v err=%v", created, err)
	}
	if second.Extension != "101" {
		t.Fatalf("second create must not overwrite fields, got ext %q", second.Extension)
	}
}

func TestGetOrCreateConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	const workers = 16
	var wg sync.WaitGroup
	createdCount := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := r.GetOrCreate(ctx, "C1", Initial{Extension: "101"})
			if err != nil {
				t.Errorf("unexpected err: %v", err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	wins := 0
	for c := range createdCount {
		if c {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one creation, got %d", wins)
	}
}

func TestTransitionMonotonic(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_, _, _ = r.GetOrCreate(ctx, "C1", Initial{Extension: "101"})

	rec, err := r.Transition(ctx, "C1", StateConnected, Merge{})
	if err != nil || rec.State != StateConnected {
		t.Fatalf("expected connected, got %q err=%v", rec.State, err)
	}

	// Late Dial must not regress the state.
	rec, err = r.Transition(ctx, "C1", StateRinging, Merge{})
	if err != nil || rec.State != StateConnected {
		t.Fatalf("expected connected after stale ringing, got %q err=%v", rec.State, err)
	}
}

func TestTransitionFirstTerminalWins(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_, _, _ = r.GetOrCreate(ctx, "C1", Initial{})

	rec, _ := r.Transition(ctx, "C1", StateCompleted, Merge{})
	if rec.State != StateCompleted {
		t.Fatalf("expected completed, got %q", rec.State)
	}

	rec, _ = r.Transition(ctx, "C1", StateFailed, Merge{})
	if rec.State != StateCompleted {
		t.Fatalf("expected first terminal to stick, got %q", rec.State)
	}
}

func TestTransitionMergesFieldsOnRegression(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_, _, _ = r.GetOrCreate(ctx, "C1", Initial{})
	_, _ = r.Transition(ctx, "C1", StateCompleted, Merge{})

	end := time.Now().UTC()
	dur := 42
	rec, err := r.Transition(ctx, "C1", StateCompleted, Merge{EndTime: &end, DurationSeconds: &dur})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.EndTime == nil || rec.DurationSeconds == nil || *rec.DurationSeconds != 42 {
		t.Fatalf("expected merge fields applied, got %+v", rec)
	}
}

func TestTransitionUnknownCall(t *testing.T) {
	r := NewMemoryRegistry()
	if _, err := r.Transition(context.Background(), "C99", StateRinging, Merge{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountCompletedByPhone(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	for _, id := range []string{"C1", "C2", "C3"} {
		_, _, _ = r.GetOrCreate(ctx, id, Initial{})
		_ = r.SetEnrichment(ctx, id, "+254712345678", nil, 0)
	}
	_, _ = r.Transition(ctx, "C1", StateCompleted, Merge{})
	_, _ = r.Transition(ctx, "C2", StateBusy, Merge{})

	n, err := r.CountCompletedByPhone(ctx, "+254712345678")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 completed call, got %d err=%v", n, err)
	}
}
