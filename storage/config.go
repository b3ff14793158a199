package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderRedis = "redis"
)

// DefaultProvider is the local filesystem.
const DefaultProvider = ProviderLocal

// Config holds storage configuration. Provider-specific settings travel
// separately (see New).
type Config struct {
	// Provider selects the backend: "local" or "redis".
	Provider string `yaml:"provider" mapstructure:"provider" json:"provider"`

	// BasePath is the root directory for local storage. Defaults to
	// <user cache dir>/artcache.
	BasePath string `yaml:"base_path" mapstructure:"base_path" json:"base_path"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath()
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return fmt.Errorf("storage: base_path is required for local provider")
		}
	case ProviderRedis:
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}

// DefaultBasePath returns the application-private cache directory.
func DefaultBasePath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "artcache")
}
