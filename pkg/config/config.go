package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Recognized embedding provider kinds (spec.md §6 embedding_provider).
const (
	ProviderExternal = "external"
	ProviderLocal    = "local"
)

// Recognized sync modes (spec.md §6 sync_mode).
const (
	SyncNormal   = "normal"
	SyncFast     = "fast"
	SyncParanoid = "paranoid"
)

// Recognized ship-in-tree embedding dimensions; any other positive value
// up to MaxEmbeddingDimension is a "Custom" dimension per spec.md §6.
const (
	DimensionSmall        = 384
	DimensionLarge        = 768
	MaxEmbeddingDimension = 4096
)

// Config is PulseDB's complete configuration surface: the embedding
// provider and dimension contract, storage tuning, activity staleness,
// and the default collective, plus the logging section every ambient
// PulseDB component carries regardless of which features are in play.
type Config struct {
	Embedding         EmbeddingConfig `mapstructure:"embedding"`
	CacheSizeMB       int             `mapstructure:"cache_size_mb"`
	SyncMode          string          `mapstructure:"sync_mode"`
	Activity          ActivityConfig  `mapstructure:"activity"`
	DefaultCollective string          `mapstructure:"default_collective"` // canonical UUID text, empty means unset
	Logging           LoggingConfig   `mapstructure:"logging"`
}

// EmbeddingConfig selects and parameterizes the embedding service.
type EmbeddingConfig struct {
	// Provider is "external" (caller supplies every embedding) or
	// "local" (a transformer adapter computes them from content).
	Provider string `mapstructure:"provider"`
	// Dimension is one of DimensionSmall, DimensionLarge, or a custom
	// value in (0, MaxEmbeddingDimension]. Locked into the database's
	// metadata at creation and validated against it at every open.
	Dimension int `mapstructure:"dimension"`
	// ModelPath points at a directory containing model.onnx and
	// tokenizer.json for the Local provider. Required when Dimension is
	// a custom value; optional (falls back to the per-user model cache)
	// for DimensionSmall/DimensionLarge.
	ModelPath string `mapstructure:"model_path"`
}

// ActivityConfig configures agent-presence staleness.
type ActivityConfig struct {
	// StaleThreshold is how long an activity row may go without a
	// heartbeat before GetActiveAgents stops returning it.
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
}

// LoggingConfig holds logging configuration, carried as ambient stack
// regardless of which database features are configured.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// DefaultConfig returns the configuration a fresh PulseDB handle opens
// with if the caller supplies nothing: local transformer embeddings at
// the small model dimension, normal durability, a five-minute activity
// staleness window.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  ProviderLocal,
			Dimension: DimensionSmall,
		},
		CacheSizeMB: 64,
		SyncMode:    SyncNormal,
		Activity: ActivityConfig{
			StaleThreshold: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// DefaultConfig's values for anything unset. A missing file is not an
// error: Load returns the defaults unchanged.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.model_path", d.Embedding.ModelPath)
	v.SetDefault("cache_size_mb", d.CacheSizeMB)
	v.SetDefault("sync_mode", d.SyncMode)
	v.SetDefault("activity.stale_threshold", d.Activity.StaleThreshold)
	v.SetDefault("default_collective", d.DefaultCollective)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks the configuration surface's own invariants: the
// cross-component invariants (does default_collective exist, does the
// dimension match an already-open database) are the facade's job, since
// they require storage access.
func (c *Config) Validate() error {
	if c.CacheSizeMB <= 0 {
		return fmt.Errorf("cache_size_mb must be positive, got %d", c.CacheSizeMB)
	}
	if c.Embedding.Dimension <= 0 || c.Embedding.Dimension > MaxEmbeddingDimension {
		return fmt.Errorf("embedding.dimension must be in (0, %d], got %d", MaxEmbeddingDimension, c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case ProviderExternal, ProviderLocal:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q", ProviderExternal, ProviderLocal, c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderLocal && !isBuiltinDimension(c.Embedding.Dimension) && c.Embedding.ModelPath == "" {
		return fmt.Errorf("embedding.model_path is required for a custom dimension (%d is neither %d nor %d)",
			c.Embedding.Dimension, DimensionSmall, DimensionLarge)
	}
	switch c.SyncMode {
	case SyncNormal, SyncFast, SyncParanoid:
	default:
		return fmt.Errorf("sync_mode must be one of %q, %q, %q, got %q", SyncNormal, SyncFast, SyncParanoid, c.SyncMode)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}
	return nil
}

func isBuiltinDimension(d int) bool {
	return d == DimensionSmall || d == DimensionLarge
}

// ConfigDir returns the default per-user directory PulseDB's config
// file would live under, following the same XDG-ish convention the
// teacher project uses for its own config home.
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pulsedb")
}
