package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	setEnv(t, "DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/clinic")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
	if cfg.JWTSecret == "" {
		t.Error("expected dev fallback JWT secret")
	}
	if cfg.DoctorSelfBooking {
		t.Error("doctor self booking should default to off")
	}
}

func TestValidate_ProductionNeedsSecret(t *testing.T) {
	cfg := &Config{Env: "production", JWTAccessTTLMin: 60, LockTTLSeconds: 10, DBMaxConns: 20, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}
	cfg.JWTSecret = "real-secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_LockTTL(t *testing.T) {
	cfg := &Config{Env: "development", JWTSecret: "x", JWTAccessTTLMin: 60, LockTTLSeconds: 0, DBMaxConns: 20, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive lock TTL")
	}
}

func TestValidate_ConnBounds(t *testing.T) {
	cfg := &Config{Env: "development", JWTSecret: "x", JWTAccessTTLMin: 60, LockTTLSeconds: 5, DBMaxConns: 2, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when max conns < min conns")
	}
}
