package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFileJSONOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"validator":{"worker_count":4,"wait_seconds":30}}`)

	cfg := Default()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if cfg.ValidatorConfig.WorkerCount != 4 {
		t.Errorf("worker_count = %d, want 4", cfg.ValidatorConfig.WorkerCount)
	}
	if cfg.ValidatorConfig.WaitSeconds != 30 {
		t.Errorf("wait_seconds = %d, want 30", cfg.ValidatorConfig.WaitSeconds)
	}
	// Untouched sections keep their defaults.
	if cfg.GradescopeConfig.BaseURL != "https://www.gradescope.com" {
		t.Errorf("base_url changed unexpectedly: %s", cfg.GradescopeConfig.BaseURL)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "gradescope:\n  base_url: https://staging.gradescope.com\nvalidator:\n  worker_count: 2\n  wait_seconds: 10\n")

	cfg := Default()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if cfg.GradescopeConfig.BaseURL != "https://staging.gradescope.com" {
		t.Errorf("base_url = %s", cfg.GradescopeConfig.BaseURL)
	}
	if cfg.ValidatorConfig.WorkerCount != 2 || cfg.ValidatorConfig.WaitSeconds != 10 {
		t.Errorf("unexpected validator config: %+v", cfg.ValidatorConfig)
	}
}

func TestLoadFromFileUnknownExtension(t *testing.T) {
	path := writeConfig(t, "config.toml", "worker_count = 4")

	cfg := Default()
	if err := cfg.LoadFromFile(path); err == nil {
		t.Fatal("expected an error for an unknown config extension")
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := Default()
	cfg.ValidatorConfig.WorkerCount = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a validation error for worker_count = 0")
	}
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := Default()
	cfg.GradescopeConfig.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a validation error for an empty base_url")
	}
}
