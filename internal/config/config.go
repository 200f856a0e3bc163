// Package config loads engine configuration from YAML or TOML files,
// selected by extension, with defaults and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for configuration loading.
var (
	// ErrUnsupportedFormat is returned for file extensions other than
	// .yaml, .yml, and .toml.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidConfig is returned when a loaded config fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Duration wraps time.Duration for human-readable config values ("2s", "1m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for YAML and TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Provider selects and tunes the rewrite collaborator.
type Provider struct {
	// Name is one of: anthropic, openai, gemini, mock.
	Name string `yaml:"name" toml:"name"`

	// Model overrides the provider's default model.
	Model string `yaml:"model" toml:"model"`

	// ImageModel overrides the image model for asset generation (openai).
	ImageModel string `yaml:"image_model" toml:"image_model"`

	// APIKeyEnv overrides the environment variable read for the key.
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
}

// Engine tunes patch batch execution and the editing session.
type Engine struct {
	// ContextRadius is the byte radius of rewrite context windows.
	ContextRadius int `yaml:"context_radius" toml:"context_radius"`

	// FragmentTimeout bounds the wait for each streamed fragment.
	FragmentTimeout Duration `yaml:"fragment_timeout" toml:"fragment_timeout"`

	// CheckpointDebounce is the quiet period before an edit checkpoint.
	CheckpointDebounce Duration `yaml:"checkpoint_debounce" toml:"checkpoint_debounce"`

	// ProximityThreshold groups queued requests within this byte gap.
	ProximityThreshold int `yaml:"proximity_threshold" toml:"proximity_threshold"`
}

// Storage selects revision persistence.
type Storage struct {
	// Driver is "memory" or "postgres".
	Driver string `yaml:"driver" toml:"driver"`

	// DSN is the postgres connection string; ignored for memory.
	DSN string `yaml:"dsn" toml:"dsn"`

	// AssetDir is where generated assets are written.
	AssetDir string `yaml:"asset_dir" toml:"asset_dir"`
}

// Config is the root configuration.
type Config struct {
	Provider Provider `yaml:"provider" toml:"provider"`
	Engine   Engine   `yaml:"engine" toml:"engine"`
	Storage  Storage  `yaml:"storage" toml:"storage"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Provider: Provider{Name: "mock"},
		Engine: Engine{
			ContextRadius:      200,
			FragmentTimeout:    Duration(30 * time.Second),
			CheckpointDebounce: Duration(2 * time.Second),
			ProximityThreshold: 80,
		},
		Storage: Storage{Driver: "memory", AssetDir: "assets"},
	}
}

// Load reads, parses, and validates a config file, filling unset fields with
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "openai", "gemini", "mock":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider.Name)
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: postgres storage requires dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Engine.ContextRadius < 0 {
		return fmt.Errorf("%w: context_radius must be non-negative", ErrInvalidConfig)
	}
	if c.Engine.FragmentTimeout < 0 || c.Engine.CheckpointDebounce < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrInvalidConfig)
	}
	return nil
}
