package utils

import (
	"context"
	"testing"
)

func TestRedisConfigDefaults(t *testing.T) {
	got := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if got.DialTimeout <= 0 || got.ReadTimeout <= 0 || got.WriteTimeout <= 0 {
		t.Fatalf("expected timeout defaults, got %+v", got)
	}
	if got.PoolSize <= 0 {
		t.Fatalf("expected pool size default, got %d", got.PoolSize)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
