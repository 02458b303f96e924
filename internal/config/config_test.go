package config

import (
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Listen == "" {
		t.Error("default listen empty")
	}
	if cfg.Server.TokenTTLHours <= 0 {
		t.Error("default token ttl not positive")
	}
	if cfg.Client.ServerURL == "" {
		t.Error("default server url empty")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Listen = "0.0.0.0:9999"
	cfg.Server.JWTSecret = "0123456789abcdef0123"
	cfg.Client.Email = "ada@example.com"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Listen != "0.0.0.0:9999" {
		t.Errorf("listen = %q", loaded.Server.Listen)
	}
	if loaded.Client.Email != "ada@example.com" {
		t.Errorf("email = %q", loaded.Client.Email)
	}
	// Unset file values keep defaults.
	if loaded.Server.TokenTTLHours != 24 {
		t.Errorf("token ttl = %d, want default 24", loaded.Server.TokenTTLHours)
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected error for missing jwt secret")
	}
	cfg.Server.JWTSecret = "0123456789abcdef0123"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateClient(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateClient(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Client.ServerURL = "not a url"
	if err := cfg.ValidateClient(); err == nil {
		t.Error("expected error for bad server url")
	}
}
