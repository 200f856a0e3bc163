package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "redline.yaml", `
provider:
  name: anthropic
  model: claude-sonnet-4-20250514
engine:
  context_radius: 300
  fragment_timeout: 45s
  checkpoint_debounce: 1500ms
storage:
  driver: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Provider.Name != "anthropic" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Engine.ContextRadius != 300 {
		t.Errorf("radius = %d", cfg.Engine.ContextRadius)
	}
	if cfg.Engine.FragmentTimeout.Std() != 45*time.Second {
		t.Errorf("fragment timeout = %v", cfg.Engine.FragmentTimeout.Std())
	}
	if cfg.Engine.CheckpointDebounce.Std() != 1500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Engine.CheckpointDebounce.Std())
	}
	// Unset fields keep defaults.
	if cfg.Engine.ProximityThreshold != 80 {
		t.Errorf("proximity = %d, want default 80", cfg.Engine.ProximityThreshold)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "redline.toml", `
[provider]
name = "openai"

[engine]
fragment_timeout = "10s"

[storage]
driver = "postgres"
dsn = "postgres://localhost/redline"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Engine.FragmentTimeout.Std() != 10*time.Second {
		t.Errorf("fragment timeout = %v", cfg.Engine.FragmentTimeout.Std())
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "redline.json", `{}`)

	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "eliza" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "tape" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres"; c.Storage.DSN = "" }},
		{"negative radius", func(c *Config) { c.Engine.ContextRadius = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}
