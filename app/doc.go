// Package app is the composition root of artcache. Config gathers every
// section; Build wires storage, telemetry, the cache, the replay queue,
// the connectivity monitor and prober, the repository, the artwork use
// cases and the HTTP server onto one bootstrap lifecycle.
package app
