package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access TTL 15m, got %v", cfg.AccessTokenTTL)
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		t.Fatal("expected distinct default token secrets")
	}
}

func TestLoadRejectsEqualSecrets(t *testing.T) {
	t.Setenv("CLIPTUBE_ACCESS_TOKEN_SECRET", "same")
	t.Setenv("CLIPTUBE_REFRESH_TOKEN_SECRET", "same")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when both token secrets are equal")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLIPTUBE_PORT", "9999")
	t.Setenv("CLIPTUBE_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CLIPTUBE_MEDIA_BUCKET", "clips")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AppPort != 9999 {
		t.Fatalf("expected port override, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected TTL override, got %v", cfg.AccessTokenTTL)
	}
	if cfg.ObjectStore.Bucket != "clips" {
		t.Fatalf("expected bucket override, got %q", cfg.ObjectStore.Bucket)
	}
}
