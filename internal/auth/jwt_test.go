package auth

import (
	"testing"
	"time"

	"phonebridge/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "test-secret",
		JWTIssuer:      "phonebridge",
		JWTAudience:    "admin-api",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	tok, err := m.Issue(now, "user-1", "agent@example.com", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	tok, err := m.Issue(now, "user-1", "", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(16*time.Minute)); err == nil {
		t.Fatal("want error for expired token")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := testManager(t)
	other, err := NewManager(config.AuthConfig{JWTSecret: "other-secret", AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	tok, err := other.Issue(time.Now(), "user-1", "", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(tok, time.Now()); err == nil {
		t.Fatal("want error for token signed with another secret")
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatal("want error for empty secret")
	}
}
