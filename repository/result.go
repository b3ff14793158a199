package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/offlinequeue"
)

// Kind is the outcome of a read.
type Kind int

const (
	// Fresh data came from the cache within its TTL or straight from the
	// remote catalog.
	Fresh Kind = iota
	// Stale data is an expired cache entry served while offline.
	Stale
	// Queued is only produced by Presentation: the read failed offline and
	// the request is waiting for replay.
	Queued
	// Failed carries an error and no data.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Queued:
		return "queued"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the only output shape of Fetch.
//
//   - Fresh: Data set. Err is a STORAGE error if the write-through failed.
//   - Stale: Data set, Age is how old the entry is.
//   - Failed: Err set. Pending is set when the request was queued.
type Result struct {
	Kind    Kind
	Key     string
	Data    *catalog.Page
	Age     time.Duration
	Err     *errors.AppError
	Pending *offlinequeue.Request
	// Fetched is set when Data came from the catalog during this call
	// rather than from the cache.
	Fetched bool
}

// HasData reports whether the result carries a page.
func (r Result) HasData() bool {
	return r.Data != nil
}

// Presentation returns r as the user should see it. A failed read that was
// queued for replay is shown as Queued so offline messaging differs from
// "the request failed".
func (r Result) Presentation() Result {
	if r.Kind == Failed && r.Pending != nil {
		r.Kind = Queued
	}
	return r
}

// Message is a short user-facing summary of r.
func (r Result) Message() string {
	switch r.Presentation().Kind {
	case Fresh:
		if r.Err != nil {
			return "Showing latest results; they could not be saved for offline use."
		}
		return ""
	case Stale:
		return fmt.Sprintf("You are offline. Showing results saved %s ago.", r.Age.Round(time.Second))
	case Queued:
		return "You are offline. The request will be retried when the connection returns."
	default:
		if r.Err == nil {
			return "Request failed."
		}
		return r.Err.Message
	}
}

// CacheKey returns the cache key for a search. Queries that differ only in
// case or surrounding whitespace share a key.
func CacheKey(query string, page int) string {
	return fmt.Sprintf("%s:page:%d", normalize(query), page)
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
