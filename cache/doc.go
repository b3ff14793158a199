// Package cache is a persistent TTL cache of JSON values.
//
// Each key is stored as one object named by SlotName, holding an Envelope
// of {written_at, payload}. Freshness is decided on read: Load with a
// maxAge deletes and ignores entries that are older, and deletes entries
// that cannot be decoded. Pass NoExpiry to accept any age.
//
//	store := cache.New(backend, log)
//	_ = store.Save(ctx, "monet:page:1", page)
//	var page catalog.Page
//	ok, err := store.Load(ctx, "monet:page:1", cache.DefaultTTL, &page)
package cache
