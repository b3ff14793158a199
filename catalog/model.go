package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Artwork is one search hit. Every field except ID is optional upstream.
type Artwork struct {
	ID          int     `json:"id"`
	Title       *string `json:"title"`
	Date        *string `json:"date_display"`
	Description *string `json:"short_description"`
	ArtistTitle *string `json:"artist_title"`
	ImageID     *string `json:"image_id"`
}

// Pagination is the page metadata returned with search results.
type Pagination struct {
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
	Total       int    `json:"total"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
	NextURL     string `json:"next_url,omitempty"`
	PrevURL     string `json:"prev_url,omitempty"`
}

// HasMore reports whether a later page exists.
func (p *Pagination) HasMore() bool {
	if p == nil {
		return false
	}
	if p.NextURL != "" {
		return true
	}
	return p.CurrentPage > 0 && p.CurrentPage < p.TotalPages
}

// Page is one page of search results. It is also the cached value.
type Page struct {
	Data       []Artwork   `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Empty reports whether the page carries no artworks.
func (p *Page) Empty() bool {
	return p == nil || len(p.Data) == 0
}

const noDescription = "No description available"

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// PlainDescription returns the description with HTML tags removed.
func (a Artwork) PlainDescription() string {
	if a.Description == nil {
		return noDescription
	}
	d := strings.TrimSpace(*a.Description)
	if d == "" {
		return noDescription
	}
	return htmlTag.ReplaceAllString(d, "")
}

// DisplayTitle returns the title or "Untitled".
func (a Artwork) DisplayTitle() string {
	if a.Title == nil || strings.TrimSpace(*a.Title) == "" {
		return "Untitled"
	}
	return *a.Title
}

// IIIF image endpoint.
const (
	IIIFBaseURL      = "https://www.artic.edu/iiif/2"
	DefaultImageSize = "full/843,"
)

// ImageURL builds the IIIF image URL for imageID. An empty size selects
// DefaultImageSize; an empty id yields "".
func ImageURL(imageID, size string) string {
	if imageID == "" {
		return ""
	}
	if size == "" {
		size = DefaultImageSize
	}
	return fmt.Sprintf("%s/%s/%s/0/default.jpg", IIIFBaseURL, imageID, size)
}

// ImageURL returns the artwork's image URL at size, or "" without an image.
func (a Artwork) ImageURL(size string) string {
	if a.ImageID == nil {
		return ""
	}
	return ImageURL(*a.ImageID, size)
}
