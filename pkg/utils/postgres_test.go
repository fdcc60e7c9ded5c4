package utils

import "testing"

func TestPostgresPoolConfigDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns <= 0 || got.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool sizes, got %+v", got)
	}
	if got.PingTimeout <= 0 {
		t.Fatalf("expected ping timeout default, got %v", got.PingTimeout)
	}

	// Explicit values survive.
	got = PostgresPoolConfig{MaxOpenConns: 5}.withDefaults()
	if got.MaxOpenConns != 5 {
		t.Fatalf("expected explicit MaxOpenConns kept, got %d", got.MaxOpenConns)
	}
}
