package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Store location and SQLite settings
	Storage StorageConfig `toml:"storage"`

	// Store initialization retry policy
	Init InitConfig `toml:"init"`

	// Reference data seeding
	Seed SeedConfig `toml:"seed"`

	// Search defaults
	Search SearchConfig `toml:"search"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// StorageConfig contains store settings.
type StorageConfig struct {
	// Directory holding the store files ("" = ~/.ptcg-companion)
	DataDir string `toml:"data_dir"`

	// Store names; each lives at <data_dir>/<name>.db
	ReferenceStore string `toml:"reference_store" validate:"required,nefield=UserStore"`
	UserStore      string `toml:"user_store" validate:"required"`

	// SQLite busy timeout (e.g., "5s")
	BusyTimeout string `toml:"busy_timeout" validate:"required"`

	// SQLite journal mode
	JournalMode string `toml:"journal_mode" validate:"oneof=DELETE TRUNCATE PERSIST MEMORY WAL OFF"`
}

// InitConfig contains store initialization settings.
type InitConfig struct {
	MaxAttempts int    `toml:"max_attempts" validate:"min=1,max=20"` // Attempts per EnsureReady call
	RetryDelay  string `toml:"retry_delay" validate:"required"`      // Fixed delay between attempts (e.g., "1s")
}

// SeedConfig contains reseed settings.
type SeedConfig struct {
	BatchSize   int    `toml:"batch_size" validate:"min=1"` // Rows per insert batch
	DatasetPath string `toml:"dataset_path"`                // Catalog JSON override ("" = bundled)
}

// SearchConfig contains search defaults.
type SearchConfig struct {
	PageSize int `toml:"page_size" validate:"min=1,max=500"` // Results per page
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:        "",
			ReferenceStore: "reference",
			UserStore:      "user",
			BusyTimeout:    "5s",
			JournalMode:    "WAL",
		},
		Init: InitConfig{
			MaxAttempts: 3,
			RetryDelay:  "1s",
		},
		Seed: SeedConfig{
			BatchSize:   500,
			DatasetPath: "",
		},
		Search: SearchConfig{
			PageSize: 20,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// appDir returns ~/.ptcg-companion.
func appDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ptcg-companion"), nil
}

// DefaultPath returns the path of the configuration file.
func DefaultPath() (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from path, or DefaultPath when path is empty.
// Returns default config if the file doesn't exist. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()

	// If file doesn't exist, return default config
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Parse TOML
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to path, or DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	// Marshal to TOML
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Validate busy timeout
	if d, err := time.ParseDuration(c.Storage.BusyTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid busy timeout %q", c.Storage.BusyTimeout)
	}

	// Validate retry delay
	if d, err := time.ParseDuration(c.Init.RetryDelay); err != nil || d < 0 {
		return fmt.Errorf("invalid retry delay %q", c.Init.RetryDelay)
	}

	return nil
}

// GetDataDir returns the store directory, defaulting to ~/.ptcg-companion.
func (c *Config) GetDataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return appDir()
}

// GetBusyTimeout returns the busy timeout as a duration.
func (c *Config) GetBusyTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Storage.BusyTimeout)
}

// GetRetryDelay returns the retry delay as a duration.
func (c *Config) GetRetryDelay() (time.Duration, error) {
	return time.ParseDuration(c.Init.RetryDelay)
}
