// Package repository holds the offline-first read policy.
//
// Fetch consults the cache, then connectivity, then the remote catalog,
// and always answers with a Result of kind Fresh, Stale or Failed. Failed
// results that were queued for replay present as Queued. Run drains the
// replay queue once per reconnect and writes replayed pages through to
// the cache, so the next read of a queued search is a cache hit.
//
// The repository keeps no state; all of it lives in the cache, the queue
// and the monitor it is given.
package repository
