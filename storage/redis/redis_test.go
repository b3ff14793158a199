package redis

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/storage"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	s, err := New(Config{Addr: mini.Addr(), KeyPrefix: "test:"}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mini
}

func TestUploadDownload(t *testing.T) {
	s, mini := newTestStorage(t)
	ctx := context.Background()

	if err := s.Upload(ctx, "monet%3Apage%3A1.json", strings.NewReader(`{"x":1}`)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	got, err := mini.Get("test:monet%3Apage%3A1.json")
	if err != nil || got != `{"x":1}` {
		t.Errorf("raw key = %q, %v", got, err)
	}
	if mini.TTL("test:monet%3Apage%3A1.json") != 0 {
		t.Error("objects must not carry a redis expiry")
	}

	rc, err := s.Download(ctx, "monet%3Apage%3A1.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != `{"x":1}` {
		t.Errorf("Download = %q", b)
	}
}

func TestDownloadMissing(t *testing.T) {
	s, _ := newTestStorage(t)
	if _, err := s.Download(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAndExists(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	_ = s.Upload(ctx, "a", strings.NewReader("1"))

	ok, err := s.Exists(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete %d: %v", i, err)
		}
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("expected key gone")
	}
}

func TestListScopedToPrefix(t *testing.T) {
	s, mini := newTestStorage(t)
	ctx := context.Background()
	_ = mini.Set("unrelated", "x")
	_ = s.Upload(ctx, "b.json", strings.NewReader("bb"))
	_ = s.Upload(ctx, "a.json", strings.NewReader("a"))
	_ = s.Upload(ctx, "a*.json", strings.NewReader("star"))

	files, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	if strings.Join(names, ",") != "a*.json,a.json,b.json" {
		t.Errorf("unexpected listing %v", names)
	}
	if files[2].Size != 2 {
		t.Errorf("expected size 2 for b.json, got %d", files[2].Size)
	}

	starred, _ := s.List(ctx, "a*")
	if len(starred) != 1 || starred[0].Path != "a*.json" {
		t.Errorf("glob characters in prefix must match literally, got %+v", starred)
	}
}

func TestPingFailsWhenServerDown(t *testing.T) {
	s, mini := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	mini.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}

func TestComponentLifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := &Config{Addr: mini.Addr()}
	comp := storage.NewComponent(storage.Config{Provider: storage.ProviderRedis}, cfg, logger.Nop())

	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := comp.Health(ctx); h.Status != "healthy" {
		t.Errorf("health = %+v", h)
	}
	if d := comp.Describe(); !strings.Contains(d.Details, "provider=redis") || !strings.Contains(d.Details, mini.Addr()) {
		t.Errorf("describe = %q", d.Details)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if comp.Storage() != nil {
		t.Error("storage should be released after Stop")
	}
}
