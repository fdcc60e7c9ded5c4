package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "phonebridge")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "phonebridge")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("VITALPBX_API_BASE", "https://pbx.example.com/api")
	t.Setenv("VITALPBX_API_KEY", "pbx-key")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB.SSLMode != "disable" {
		t.Fatalf("sslmode = %q, want local default disable", cfg.DB.SSLMode)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("access ttl = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Zoho.APIBase != "https://www.zohoapis.com" {
		t.Fatalf("zoho base = %q", cfg.Zoho.APIBase)
	}
	if cfg.Zoho.ContactCacheTTL != 5*time.Minute {
		t.Fatalf("contact cache ttl = %v", cfg.Zoho.ContactCacheTTL)
	}
	if !cfg.Popup.Enabled {
		t.Fatal("popups disabled by default")
	}
	if cfg.Popup.Timeout != 10*time.Second {
		t.Fatalf("popup timeout = %v", cfg.Popup.Timeout)
	}
	if cfg.Popup.MaxRetries != 3 || cfg.Popup.RetryBatchSize != 10 {
		t.Fatalf("retry knobs = %d/%d", cfg.Popup.MaxRetries, cfg.Popup.RetryBatchSize)
	}
	if cfg.Popup.DefaultCountry != "kenya" {
		t.Fatalf("default country = %q", cfg.Popup.DefaultCountry)
	}
	if cfg.VitalPBX.RequestTimeout != 30*time.Second {
		t.Fatalf("pbx timeout = %v", cfg.VitalPBX.RequestTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("POPUP_ENABLED", "false")
	t.Setenv("POPUP_MAX_RETRIES", "5")
	t.Setenv("POPUP_TIMEOUT", "3s")
	t.Setenv("POPUP_DEFAULT_COUNTRY", "us")
	t.Setenv("JWT_ACCESS_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Popup.Enabled {
		t.Fatal("POPUP_ENABLED=false not honored")
	}
	if cfg.Popup.MaxRetries != 5 || cfg.Popup.Timeout != 3*time.Second {
		t.Fatalf("popup knobs = %d/%v", cfg.Popup.MaxRetries, cfg.Popup.Timeout)
	}
	if cfg.Popup.DefaultCountry != "us" {
		t.Fatalf("default country = %q", cfg.Popup.DefaultCountry)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Fatalf("access ttl = %v", cfg.Auth.AccessTokenTTL)
	}
}

func TestLoadAccumulatesErrors(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("VITALPBX_API_BASE", "")
	t.Setenv("VITALPBX_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("want error for missing required keys")
	}
	for _, key := range []string{"JWT_SECRET", "VITALPBX_API_BASE", "VITALPBX_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestProductionRequiresExplicitSSLMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_ISSUER", "phonebridge")
	t.Setenv("JWT_AUDIENCE", "admin-api")

	if _, err := Load(); err == nil {
		t.Fatal("want error for missing DB_SSLMODE in production")
	}

	t.Setenv("DB_SSLMODE", "require")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("IsProduction() = false")
	}
}

func TestDSNAndAddrs(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.RedisAddr(); got != "localhost:6379" {
		t.Fatalf("redis addr = %q", got)
	}
	if got := cfg.HTTPAddr(); got != ":8080" {
		t.Fatalf("http addr = %q", got)
	}
	dsn := cfg.PostgresDSN()
	for _, part := range []string{"host=localhost", "dbname=phonebridge", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Fatalf("dsn missing %q: %s", part, dsn)
		}
	}
}
