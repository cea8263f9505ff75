package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvAPIURL, "")
	Reset()
	t.Cleanup(Reset)
	return dir
}

func TestLoadCreatesDefaults(t *testing.T) {
	dir := setup(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIUrl != DefaultAPIURL {
		t.Errorf("APIUrl = %q, want %q", cfg.APIUrl, DefaultAPIURL)
	}

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestSetPersists(t *testing.T) {
	setup(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	if err := Set("api_url", "https://tally.example.com"); err != nil {
		t.Fatalf("Set(api_url) error = %v", err)
	}
	if err := Set("team", "platform"); err != nil {
		t.Fatalf("Set(custom) error = %v", err)
	}

	Reset()
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	if got, _ := Get("api_url"); got != "https://tally.example.com" {
		t.Errorf("api_url = %q after reload", got)
	}
	if got, _ := Get("team"); got != "platform" {
		t.Errorf("team = %q after reload", got)
	}
	if _, err := Get("nope"); err == nil {
		t.Error("expected error for unknown key")
	}

	all, err := List()
	if err != nil {
		t.Fatal(err)
	}
	keys := Keys(all)
	if keys[0] != "api_url" || len(keys) != 6 {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestUnset(t *testing.T) {
	setup(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	if err := Set("locale", "sv-SE"); err != nil {
		t.Fatal(err)
	}
	if err := Set("team", "platform"); err != nil {
		t.Fatal(err)
	}

	if err := Unset("locale"); err != nil {
		t.Fatalf("Unset(locale) error = %v", err)
	}
	if err := Unset("team"); err != nil {
		t.Fatalf("Unset(team) error = %v", err)
	}
	if err := Unset("team"); err == nil {
		t.Error("expected error for a custom key that is not set")
	}

	Reset()
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if got, _ := Get("locale"); got != Default().Locale {
		t.Errorf("locale = %q after unset, want %q", got, Default().Locale)
	}
	if _, err := Get("team"); err == nil {
		t.Error("expected team to be gone after unset")
	}
}

func TestSetValidates(t *testing.T) {
	setup(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"timeout", "10s", false},
		{"timeout", "45", false},
		{"timeout", "0", false},
		{"timeout", "soon", true},
		{"timeout", "-5s", true},
		{"output.format", "yaml", false},
		{"output.format", "xml", true},
	}
	for _, tt := range tests {
		err := Set(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}
}

func TestGetTimeout(t *testing.T) {
	setup(t)
	if got := GetTimeout(); got != 30*time.Second {
		t.Errorf("GetTimeout() before load = %v", got)
	}
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if err := Set("timeout", "2m"); err != nil {
		t.Fatal(err)
	}
	if got := GetTimeout(); got != 2*time.Minute {
		t.Errorf("GetTimeout() = %v, want 2m", got)
	}
}

func TestEnvOverride(t *testing.T) {
	setup(t)
	t.Setenv(EnvAPIURL, "http://127.0.0.1:9999")

	if got := GetAPIUrl(); got != "http://127.0.0.1:9999" {
		t.Errorf("GetAPIUrl() before load = %q", got)
	}
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if got := GetAPIUrl(); got != "http://127.0.0.1:9999" {
		t.Errorf("GetAPIUrl() = %q", got)
	}
}
