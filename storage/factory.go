package storage

import (
	"fmt"

	"github.com/kbukum/artcache/logger"
)

// Factory creates a Storage from core config and provider-specific
// configuration. Each provider type-asserts providerCfg to its own type.
type Factory func(cfg Config, providerCfg any, log *logger.Logger) (Storage, error)

var factories = make(map[string]Factory)

// RegisterFactory registers a backend factory. Provider packages call it
// from init, so a binary enables a backend by importing it:
//
//	_ "github.com/kbukum/artcache/storage/redis"
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New creates the Storage selected by cfg.Provider.
func New(cfg Config, providerCfg any, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l := log.WithComponent("storage")
	l.Log("initializing storage", logger.CategoryCache, logger.LevelInfo,
		map[string]interface{}{"provider": cfg.Provider})
	return f(cfg, providerCfg, l)
}
