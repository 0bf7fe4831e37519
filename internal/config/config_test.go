package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir mirrors t.Chdir, which requires a newer Go toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8004},
		Cache:    CacheConfig{Addrs: []string{"localhost:6379"}},
		Backends: BackendsConfig{ProjectsURL: "http://p", UsersURL: "http://u"},
		Search:   SearchConfig{DefaultPageSize: 10, MaxPageSize: 100},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("expected ttl default 3600, got %d", cfg.Cache.TTLSec)
	}
	if cfg.Cache.KeyPrefix != "voicesearch:" {
		t.Errorf("expected key prefix default, got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Speech.Model != "whisper-1" {
		t.Errorf("expected whisper-1 default, got %q", cfg.Speech.Model)
	}
	if cfg.Speech.Language != "en" {
		t.Errorf("expected en default, got %q", cfg.Speech.Language)
	}
	if cfg.Speech.MaxAudioMB != 10 {
		t.Errorf("expected 10MB default, got %d", cfg.Speech.MaxAudioMB)
	}
	if cfg.Speech.SampleRate != 16000 {
		t.Errorf("expected 16000Hz default, got %d", cfg.Speech.SampleRate)
	}
	if cfg.Search.DefaultPageSize != 10 || cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected page size defaults 10/100, got %d/%d",
			cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected shutdown default 10, got %d", cfg.HTTP.ShutdownSec)
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port > 65535")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing cache addrs")
	}
}

func TestValidate_MissingBackends(t *testing.T) {
	cfg := validConfig()
	cfg.Backends.ProjectsURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing projects_url")
	}

	cfg = validConfig()
	cfg.Backends.UsersURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing users_url")
	}
}

func TestValidate_PageSizeOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 200
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when default exceeds max")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VS_TEST_VAR", "hello")

	got := string(expandEnvVars([]byte("value: ${VS_TEST_VAR}")))
	if got != "value: hello" {
		t.Errorf("expected substitution, got %q", got)
	}

	got = string(expandEnvVars([]byte("value: ${VS_TEST_UNSET:-fallback}")))
	if got != "value: fallback" {
		t.Errorf("expected default, got %q", got)
	}

	got = string(expandEnvVars([]byte("value: ${VS_TEST_VAR:-fallback}")))
	if got != "value: hello" {
		t.Errorf("set variable must win over default, got %q", got)
	}

	got = string(expandEnvVars([]byte("value: ${VS_TEST_UNSET}")))
	if got != "value: " {
		t.Errorf("unset without default expands empty, got %q", got)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
http:
  port: 9000
cache:
  addrs: ["localhost:6379"]
  ttl_sec: 120
backends:
  projects_url: http://projects
  users_url: http://users
`
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Cache.TTLSec != 120 {
		t.Errorf("expected ttl 120, got %d", cfg.Cache.TTLSec)
	}
	// Defaults fill the rest.
	if cfg.Speech.Model != "whisper-1" {
		t.Errorf("expected defaults applied, got model %q", cfg.Speech.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load("does-not-exist"); err == nil {
		t.Error("expected error for missing config file")
	}
}
