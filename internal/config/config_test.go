package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")
	t.Setenv("ANALYTICS_TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.Auth.TokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected token ttl %s", cfg.Auth.TokenTTL)
	}
	if cfg.Analytics.Location != time.UTC {
		t.Fatalf("expected UTC analytics location, got %s", cfg.Analytics.Location)
	}
}

func TestLoadRequiresAuthSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without AUTH_SECRET")
	}
}

func TestLoadMongoRequiresURI(t *testing.T) {
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for mongo without uri")
	}
}

func TestLoadServerConfigAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ANALYTICS_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
