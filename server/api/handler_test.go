package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/artcache/artworks"
	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/httpclient"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/storage/local"
)

type stack struct {
	engine   *gin.Engine
	monitor  *connectivity.Monitor
	upstream *atomic.Int64
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{
			"pagination": {"current_page": 1, "total_pages": 3, "total": 60, "limit": 20},
			"data": [{"id": 16568, "title": %q, "image_id": "abc-123", "short_description": "<p>Oil on canvas</p>"}]
		}`, "Works of "+q)
	}))
	t.Cleanup(upstream.Close)

	client, err := catalog.New(catalog.Config{HTTP: httpclient.Config{BaseURL: upstream.URL}}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	backend, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := cache.New(backend, logger.Nop())

	queue := offlinequeue.New(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = queue.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	monitor := connectivity.NewMonitor(logger.Nop())
	t.Cleanup(monitor.Close)

	repo := repository.New(repository.Config{}, client, store, queue, monitor, logger.Nop())
	svc := artworks.NewService(repo, store, 0, logger.Nop())

	engine := gin.New()
	NewHandler(Deps{
		Artworks:     svc,
		Queue:        queue,
		Drainer:      repo,
		Cache:        store,
		Connectivity: monitor,
	}, logger.Nop()).Register(engine)

	return &stack{engine: engine, monitor: monitor, upstream: &calls}
}

func (s *stack) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	if rr.Body.Len() == 0 {
		return rr.Code, nil
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rr.Body.String(), err)
	}
	return rr.Code, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("no data object in %v", body)
	}
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestSearch_FreshThenCached(t *testing.T) {
	s := newStack(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/search?q=Monet", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d body = %v", code, body)
	}
	d := data(t, body)
	if d["kind"] != "fresh" || d["key"] != "monet:page:1" || d["has_more"] != true {
		t.Errorf("unexpected result %v", d)
	}
	works := d["artworks"].([]any)
	first := works[0].(map[string]any)
	if first["description"] != "Oil on canvas" {
		t.Errorf("description = %v", first["description"])
	}
	if !strings.HasPrefix(first["image_url"].(string), catalog.IIIFBaseURL) {
		t.Errorf("image_url = %v", first["image_url"])
	}

	s.do(t, http.MethodGet, "/api/v1/search?q=monet", "")
	if got := s.upstream.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/artworks/16568", "")
	if code != http.StatusOK {
		t.Fatalf("details status = %d body = %v", code, body)
	}
	if data(t, body)["title"] != "Works of Monet" {
		t.Errorf("details = %v", body)
	}
}

func TestOfflineQueueAndDrain(t *testing.T) {
	s := newStack(t)

	code, body := s.do(t, http.MethodPut, "/api/v1/connectivity", `{"connected": false}`)
	if code != http.StatusOK || data(t, body)["changed"] != true || data(t, body)["state"] != "disconnected" {
		t.Fatalf("set offline: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/artists/Degas/artworks", "")
	if code != http.StatusAccepted {
		t.Fatalf("offline miss status = %d body = %v", code, body)
	}
	d := data(t, body)
	if d["kind"] != "queued" || d["pending"] == nil || d["message"] == "" {
		t.Errorf("unexpected queued result %v", d)
	}

	_, body = s.do(t, http.MethodGet, "/api/v1/queue", "")
	if n := data(t, body)["count"]; n != float64(1) {
		t.Fatalf("queue count = %v", n)
	}

	s.do(t, http.MethodPut, "/api/v1/connectivity", `{"connected": true}`)
	code, body = s.do(t, http.MethodPost, "/api/v1/queue/drain", "")
	if code != http.StatusOK {
		t.Fatalf("drain status = %d body = %v", code, body)
	}
	if ok := data(t, body)["succeeded"].([]any); len(ok) != 1 {
		t.Errorf("succeeded = %v", ok)
	}

	// The replay was written through, so going offline again still serves it.
	s.monitor.Observe(false)
	code, body = s.do(t, http.MethodGet, "/api/v1/artists/degas/artworks?page=1", "")
	if code != http.StatusOK || data(t, body)["kind"] != "fresh" {
		t.Fatalf("after replay: %d %v", code, body)
	}
	if got := s.upstream.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestLoadMorePage(t *testing.T) {
	s := newStack(t)
	code, body := s.do(t, http.MethodGet, "/api/v1/artists/monet/artworks?page=2", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d body = %v", code, body)
	}
	if data(t, body)["key"] != "monet:page:2" {
		t.Errorf("key = %v", data(t, body)["key"])
	}
}

func TestQueueAdmin(t *testing.T) {
	s := newStack(t)
	s.monitor.Observe(false)
	s.do(t, http.MethodGet, "/api/v1/search?q=klimt", "")
	s.do(t, http.MethodGet, "/api/v1/search?q=klimt&page=2", "")

	_, body := s.do(t, http.MethodGet, "/api/v1/queue/pending", "")
	pending := body["data"].([]any)
	if len(pending) != 2 {
		t.Fatalf("pending = %v", pending)
	}

	if code, _ := s.do(t, http.MethodDelete, "/api/v1/queue", ""); code != http.StatusNoContent {
		t.Fatalf("clear status = %d", code)
	}
	_, body = s.do(t, http.MethodGet, "/api/v1/queue/pending", "")
	if got := body["data"].([]any); len(got) != 0 {
		t.Errorf("pending after clear = %v", got)
	}
}

func TestCacheAdmin(t *testing.T) {
	s := newStack(t)
	s.do(t, http.MethodGet, "/api/v1/search?q=hopper", "")

	_, body := s.do(t, http.MethodGet, "/api/v1/cache/keys", "")
	keys := map[string]bool{}
	for _, k := range body["data"].([]any) {
		keys[k.(string)] = true
	}
	if !keys["hopper:page:1"] || !keys[artworks.DetailsKey(16568)] {
		t.Errorf("keys = %v", keys)
	}

	if code, _ := s.do(t, http.MethodDelete, "/api/v1/cache", ""); code != http.StatusNoContent {
		t.Fatalf("clear status = %d", code)
	}
	_, body = s.do(t, http.MethodGet, "/api/v1/cache/keys", "")
	if got := body["data"].([]any); len(got) != 0 {
		t.Errorf("keys after clear = %v", got)
	}
}

func TestGetConnectivity(t *testing.T) {
	s := newStack(t)
	code, body := s.do(t, http.MethodGet, "/api/v1/connectivity", "")
	if code != http.StatusOK || data(t, body)["connected"] != true {
		t.Fatalf("connectivity = %d %v", code, body)
	}
	if _, ok := data(t, body)["changed"]; ok {
		t.Error("changed is only reported on PUT")
	}
}

func TestBadRequests(t *testing.T) {
	s := newStack(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		code   errors.ErrorCode
	}{
		{"missing query", http.MethodGet, "/api/v1/search", "", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"page zero", http.MethodGet, "/api/v1/search?q=monet&page=0", "", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"page not a number", http.MethodGet, "/api/v1/search?q=monet&page=two", "", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"blank query", http.MethodGet, "/api/v1/search?q=%20%20", "", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"artwork id not a number", http.MethodGet, "/api/v1/artworks/abc", "", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"artwork never seen", http.MethodGet, "/api/v1/artworks/999", "", http.StatusNotFound, errors.ErrCodeUnknown},
		{"connectivity missing field", http.MethodPut, "/api/v1/connectivity", `{}`, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"connectivity malformed", http.MethodPut, "/api/v1/connectivity", `{`, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%v)", code, tt.want, body)
			}
			if got := errorCode(body); got != string(tt.code) {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
	if got := s.upstream.Load(); got != 0 {
		t.Errorf("bad requests reached upstream %d times", got)
	}
}

type busyDrainer struct{}

func (busyDrainer) Drain(context.Context) (offlinequeue.DrainReport, error) {
	return offlinequeue.DrainReport{}, offlinequeue.ErrDrainInProgress
}

func TestQueueDrain_InProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(Deps{Drainer: busyDrainer{}}, nil).Register(engine)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/queue/drain", http.NoBody))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
}
