// Package artworks contains the user-facing use cases: listing an artist's
// works page by page, free-text search and artwork details.
//
// Listing and search go through the repository read policy. Details are
// served from per-artwork cache entries written whenever a fresh page is
// fetched.
package artworks
