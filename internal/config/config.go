// Package config loads process configuration from a YAML file and
// DATABLOCKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datablocks/internal/domain"
	"datablocks/internal/schema"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DATABLOCKS_LOG_LEVEL.
const EnvPrefix = "DATABLOCKS"

// Config holds the configuration for the application.
type Config struct {
	Metadata struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"metadata"`

	// Storages are the durable storage URLs this process may read and write.
	Storages []string `mapstructure:"storages"`

	CastLevel  string `mapstructure:"cast_level"`
	SampleSize int    `mapstructure:"sample_size"`
	BatchSize  int    `mapstructure:"batch_size"`

	Persist struct {
		Schedule   string `mapstructure:"schedule"`
		StorageURL string `mapstructure:"storage_url"`
	} `mapstructure:"persist"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// DefaultDataDir is where metadata and the default sqlite storage live.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".datablocks"
	}
	return filepath.Join(home, ".local", "share", "datablocks")
}

// Load reads configuration. path may be empty, in which case datablocks.yaml
// is looked up in the working directory and the data directory; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	dataDir := DefaultDataDir()
	v.SetDefault("metadata.path", filepath.Join(dataDir, "metadata.db"))
	v.SetDefault("storages", []string{"sqlite://" + filepath.Join(dataDir, "storage.db")})
	v.SetDefault("cast_level", "soft")
	v.SetDefault("sample_size", 1000)
	v.SetDefault("batch_size", 500)
	v.SetDefault("persist.schedule", "")
	v.SetDefault("persist.storage_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("datablocks")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(dataDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// A comma-separated env override arrives as one string.
	if len(cfg.Storages) == 1 && strings.Contains(cfg.Storages[0], ",") {
		cfg.Storages = splitList(cfg.Storages[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Metadata.Path == "" {
		return errors.New("metadata.path is required")
	}
	if _, err := schema.ParseCastLevel(c.CastLevel); err != nil {
		return err
	}
	if c.SampleSize <= 0 || c.BatchSize <= 0 {
		return errors.New("sample_size and batch_size must be positive")
	}
	if _, err := c.DurableStorages(); err != nil {
		return err
	}
	if c.Persist.Schedule != "" {
		st, err := c.PersistStorage()
		if err != nil {
			return err
		}
		if st.Type != domain.StorageTypeDatabase {
			return fmt.Errorf("persist.storage_url must be a database storage, got %s", st.Scheme())
		}
	}
	return nil
}

// DurableStorages parses the storages list.
func (c *Config) DurableStorages() ([]domain.Storage, error) {
	out := make([]domain.Storage, 0, len(c.Storages))
	for _, raw := range c.Storages {
		st, err := domain.StorageFromURL(raw)
		if err != nil {
			return nil, err
		}
		if st.Type == domain.StorageTypeMemory {
			return nil, fmt.Errorf("storage %s: memory storages are per process and cannot be configured", raw)
		}
		out = append(out, st)
	}
	return out, nil
}

// PersistStorage is the persist target: persist.storage_url, or the first
// configured database storage.
func (c *Config) PersistStorage() (domain.Storage, error) {
	if c.Persist.StorageURL != "" {
		return domain.StorageFromURL(c.Persist.StorageURL)
	}
	storages, err := c.DurableStorages()
	if err != nil {
		return domain.Storage{}, err
	}
	for _, s := range storages {
		if s.Type == domain.StorageTypeDatabase {
			return s, nil
		}
	}
	return domain.Storage{}, errors.New("no database storage configured to persist to")
}

// Cast returns the parsed cast level.
func (c *Config) Cast() schema.CastLevel {
	l, _ := schema.ParseCastLevel(c.CastLevel)
	return l
}
