package artworks

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/storage/local"
)

type stubReader struct {
	res   repository.Result
	calls []string
}

func (s *stubReader) Fetch(_ context.Context, query string, page int) repository.Result {
	s.calls = append(s.calls, repository.CacheKey(query, page))
	return s.res
}

func str(s string) *string { return &s }

func newStore(t *testing.T, now func() time.Time) *cache.Store {
	t.Helper()
	backend, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return cache.New(backend, logger.Nop(), cache.WithClock(now))
}

func TestService_DelegatesToReader(t *testing.T) {
	reader := &stubReader{res: repository.Result{Kind: repository.Stale, Data: &catalog.Page{}}}
	svc := NewService(reader, newStore(t, time.Now), 0, nil)
	ctx := context.Background()

	svc.GetArtworks(ctx, "Monet", 1)
	svc.LoadMore(ctx, "Monet", 2)
	svc.Search(ctx, "water lilies", 1)

	want := []string{"monet:page:1", "monet:page:2", "water lilies:page:1"}
	if len(reader.calls) != len(want) {
		t.Fatalf("calls = %v", reader.calls)
	}
	for i := range want {
		if reader.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, reader.calls[i], want[i])
		}
	}
}

func TestService_FreshPageSeedsDetails(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	page := &catalog.Page{Data: []catalog.Artwork{
		{ID: 16568, Title: str("Water Lilies")},
		{ID: 14598, Title: str("Haystacks")},
	}}
	svc := NewService(&stubReader{res: repository.Result{Kind: repository.Fresh, Data: page, Fetched: true}}, newStore(t, clock), time.Minute, nil)
	ctx := context.Background()

	svc.Search(ctx, "monet", 1)

	got, err := svc.Details(ctx, 14598)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if got.DisplayTitle() != "Haystacks" {
		t.Errorf("title = %q", got.DisplayTitle())
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.Details(ctx, 14598); errors.CodeOf(err) != errors.ErrCodeUnknown {
		t.Errorf("expired details: err = %v, want UNKNOWN", err)
	}
}

func TestService_OnlyFetchedPagesSeed(t *testing.T) {
	page := &catalog.Page{Data: []catalog.Artwork{{ID: 1}}}
	tests := []struct {
		name string
		res  repository.Result
	}{
		{"stale", repository.Result{Kind: repository.Stale, Data: page}},
		{"fresh cache hit", repository.Result{Kind: repository.Fresh, Data: page, Age: 30 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubReader{res: tt.res}, newStore(t, time.Now), 0, nil)
			svc.Search(context.Background(), "monet", 1)
			if _, err := svc.Details(context.Background(), 1); err == nil {
				t.Error("pages read from the cache should not write detail entries")
			}
		})
	}
}

func TestService_CacheHitKeepsDetailAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	page := &catalog.Page{Data: []catalog.Artwork{{ID: 16568, Title: str("Water Lilies")}}}
	reader := &stubReader{res: repository.Result{Kind: repository.Fresh, Data: page, Fetched: true}}
	svc := NewService(reader, newStore(t, clock), time.Minute, nil)
	ctx := context.Background()

	svc.Search(ctx, "monet", 1)
	now = now.Add(40 * time.Second)
	reader.res = repository.Result{Kind: repository.Fresh, Data: page, Age: 40 * time.Second}
	svc.Search(ctx, "monet", 1)

	now = now.Add(30 * time.Second)
	if _, err := svc.Details(ctx, 16568); errors.CodeOf(err) != errors.ErrCodeUnknown {
		t.Errorf("details should expire a TTL after the fetch: err = %v", err)
	}
}

func TestService_Details(t *testing.T) {
	svc := NewService(&stubReader{}, newStore(t, time.Now), 0, logger.Nop())
	tests := []struct {
		name string
		id   int
		want errors.ErrorCode
	}{
		{"missing", 42, errors.ErrCodeUnknown},
		{"invalid", 0, errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Details(context.Background(), tt.id)
			if got := errors.CodeOf(err); got != tt.want {
				t.Errorf("code = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestService_QueuedResultPassesThrough(t *testing.T) {
	res := repository.Result{Kind: repository.Failed, Err: errors.NetworkUnavailable(), Pending: &offlinequeue.Request{Query: "monet", Page: 1}}
	svc := NewService(&stubReader{res: res}, newStore(t, time.Now), 0, nil)

	got := svc.GetArtworks(context.Background(), "monet", 1)
	if got.Presentation().Kind != repository.Queued {
		t.Errorf("presentation = %s, want queued", got.Presentation().Kind)
	}
}

func TestDetailsKey(t *testing.T) {
	if got := DetailsKey(16568); got != "artwork:16568" {
		t.Errorf("DetailsKey = %q", got)
	}
}
