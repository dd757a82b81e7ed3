package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MASHUP_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSourceSeconds != 250 {
		t.Fatalf("expected 250s source ceiling, got %d", cfg.MaxSourceSeconds)
	}
	if cfg.Subject != "Mashup Result" || cfg.ArchiveName != "mashup_result.zip" {
		t.Fatalf("unexpected delivery defaults: %q %q", cfg.Subject, cfg.ArchiveName)
	}
	if cfg.SMTPHost != "smtp.example.com" || cfg.SMTPPort != 587 {
		t.Fatalf("unexpected relay defaults: %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	}
	if cfg.SearchRetryMax != 0 {
		t.Fatalf("search retries must be off by default")
	}
}

func TestLoad_YAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mashup.yaml")
	yamlDoc := "workers: 2\nsmtp_host: relay.internal\nsearch_timeout: 5s\nsubject: From YAML\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv("MASHUP_CONFIG", path)
	t.Setenv("MASHUP_SUBJECT", "From Env")
	t.Setenv("SMTP_USERNAME", "bot@example.com")
	t.Setenv("MASHUP_FETCH_TIMEOUT", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 || cfg.SMTPHost != "relay.internal" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.SearchTimeout != 5*time.Second {
		t.Fatalf("expected 5s search timeout, got %v", cfg.SearchTimeout)
	}
	if cfg.Subject != "From Env" {
		t.Fatalf("env should win over yaml, got %q", cfg.Subject)
	}
	if cfg.FetchTimeout != 45*time.Second {
		t.Fatalf("bare seconds should parse, got %v", cfg.FetchTimeout)
	}
	if cfg.SMTPFrom != "bot@example.com" {
		t.Fatalf("from should default to username, got %q", cfg.SMTPFrom)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("MASHUP_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Workers = 0
	cfg.OutputName = "../escape.wav"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation failure")
	}
}
