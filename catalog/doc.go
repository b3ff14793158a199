// Package catalog is the remote side of the system: a client for the Art
// Institute of Chicago artwork search endpoint, the Artwork and Page
// models it decodes, and IIIF image URL construction.
//
// A Page is what gets cached, so its JSON shape is the on-disk payload
// format as well as the wire format.
package catalog
