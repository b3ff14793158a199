// Package config loads application configuration with Viper.
//
// Files are looked up in ./cmd/<service>/config.yml, ./config/config.yml,
// ./config.yml and <user config dir>/<service>/config.yml. A .env file is
// loaded with godotenv, then environment variables override file values
// (with WithEnvPrefix("ARTCACHE"), ARTCACHE_CACHE_TTL sets cache.ttl).
package config
