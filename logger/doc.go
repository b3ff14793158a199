// Package logger provides structured logging backed by zerolog.
//
// It supports JSON and console output, level configuration,
// component-scoped loggers and the category vocabulary used across the
// offline data-access packages (api, cache, network, offline, ui, general).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("repository")
//	log.Log("loaded page from cache", logger.CategoryCache, logger.LevelInfo,
//	    logger.Fields("cache_key", key))
package logger
