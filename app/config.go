package app

import (
	"fmt"

	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/config"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/observability"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/server"
	"github.com/kbukum/artcache/storage"
	redisstore "github.com/kbukum/artcache/storage/redis"
	"github.com/kbukum/artcache/validation"
	"github.com/kbukum/artcache/version"
)

// ServiceName names the binary, its config directory and env prefix.
const ServiceName = "artcache"

// Config is the full artcache configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage       storage.Config            `yaml:"storage" mapstructure:"storage"`
	Redis         redisstore.Config         `yaml:"redis" mapstructure:"redis"`
	Cache         cache.Config              `yaml:"cache" mapstructure:"cache"`
	Queue         offlinequeue.Config       `yaml:"queue" mapstructure:"queue"`
	Connectivity  connectivity.ProberConfig `yaml:"connectivity" mapstructure:"connectivity"`
	Catalog       catalog.Config            `yaml:"catalog" mapstructure:"catalog"`
	Repository    repository.Config         `yaml:"repository" mapstructure:"repository"`
	Observability observability.Config      `yaml:"observability" mapstructure:"observability"`
	Server        server.Config             `yaml:"server" mapstructure:"server"`
}

// Load reads configuration for artcache. path may be empty to use the
// standard search locations; ARTCACHE_* variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	opts := []config.LoaderOption{config.WithEnvPrefix(ServiceName)}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values in every section. The repository TTL and
// page size follow the cache and catalog settings unless set explicitly.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	c.ServiceConfig.ApplyDefaults()

	c.Storage.ApplyDefaults()
	if c.Storage.Provider == storage.ProviderRedis {
		c.Redis.ApplyDefaults()
	}
	c.Cache.ApplyDefaults()
	c.Connectivity.ApplyDefaults()

	if c.Catalog.HTTP.UserAgent == "" {
		c.Catalog.HTTP.UserAgent = version.UserAgent(ServiceName)
	}
	c.Catalog.ApplyDefaults()

	if c.Repository.TTL == 0 {
		c.Repository.TTL = c.Cache.TTL
	}
	if c.Repository.PageSize == 0 {
		c.Repository.PageSize = c.Catalog.PageSize
	}
	c.Repository.ApplyDefaults()

	c.Observability.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Storage.Provider == storage.ProviderRedis {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if err := c.Catalog.HTTP.Validate(); err != nil {
		return fmt.Errorf("catalog.http: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return nil
}
