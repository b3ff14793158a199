package api

import (
	"time"

	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
)

type artworkView struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

func newArtworkView(a catalog.Artwork) artworkView {
	return artworkView{
		ID:          a.ID,
		Title:       a.DisplayTitle(),
		Artist:      deref(a.ArtistTitle),
		Date:        deref(a.Date),
		Description: a.PlainDescription(),
		ImageURL:    a.ImageURL(catalog.DefaultImageSize),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type resultView struct {
	Kind       repository.Kind       `json:"kind"`
	Key        string                `json:"key"`
	Message    string                `json:"message,omitempty"`
	AgeSeconds int64                 `json:"age_seconds,omitempty"`
	Artworks   []artworkView         `json:"artworks"`
	Pagination *catalog.Pagination   `json:"pagination,omitempty"`
	HasMore    bool                  `json:"has_more"`
	Pending    *offlinequeue.Request `json:"pending,omitempty"`
	Warning    *errors.ErrorBody     `json:"warning,omitempty"`
}

func newResultView(res repository.Result) resultView {
	shown := res.Presentation()
	v := resultView{
		Kind:     shown.Kind,
		Key:      res.Key,
		Message:  res.Message(),
		Artworks: []artworkView{},
		Pending:  res.Pending,
	}
	if res.Kind == repository.Stale {
		v.AgeSeconds = int64(res.Age / time.Second)
	}
	if res.Data != nil {
		v.Artworks = make([]artworkView, 0, len(res.Data.Data))
		for _, a := range res.Data.Data {
			v.Artworks = append(v.Artworks, newArtworkView(a))
		}
		v.Pagination = res.Data.Pagination
		v.HasMore = res.Data.Pagination.HasMore()
		if res.Err != nil {
			w := res.Err.ToResponse().Error
			v.Warning = &w
		}
	}
	return v
}

type connectivityView struct {
	State     string    `json:"state"`
	Connected bool      `json:"connected"`
	Since     time.Time `json:"since"`
	Changed   *bool     `json:"changed,omitempty"`
}

func newConnectivityView(state connectivity.State, since time.Time) connectivityView {
	return connectivityView{
		State:     state.String(),
		Connected: state == connectivity.Connected,
		Since:     since,
	}
}
