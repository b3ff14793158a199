package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/artcache/bootstrap"
	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/storage"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Name != ServiceName {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Cache.TTL != cache.DefaultTTL || cfg.Repository.TTL != cfg.Cache.TTL {
		t.Errorf("ttl cache=%v repository=%v", cfg.Cache.TTL, cfg.Repository.TTL)
	}
	if cfg.Repository.PageSize != cfg.Catalog.PageSize {
		t.Errorf("page size repository=%d catalog=%d", cfg.Repository.PageSize, cfg.Catalog.PageSize)
	}
	if cfg.Storage.Provider != storage.ProviderLocal {
		t.Errorf("provider = %q", cfg.Storage.Provider)
	}
	if !strings.HasPrefix(cfg.Catalog.HTTP.UserAgent, ServiceName+"/") {
		t.Errorf("user agent = %q", cfg.Catalog.HTTP.UserAgent)
	}
	if cfg.Queue.Retries() != 3 {
		t.Errorf("max retries = %d", cfg.Queue.Retries())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "s3" }},
		{"page size over limit", func(c *Config) { c.Catalog.PageSize = 500 }},
		{"negative queue retries", func(c *Config) { n := -1; c.Queue.MaxRetries = &n }},
		{"bad base url", func(c *Config) { c.Catalog.HTTP.BaseURL = "not a url" }},
		{"bad prober address", func(c *Config) { c.Connectivity.Address = "no-port" }},
		{"sample rate out of range", func(c *Config) { c.Observability.SampleRate = 2 }},
		{"server port out of range", func(c *Config) { c.Server.Port = 99999 }},
		{"bad redis timeout", func(c *Config) {
			c.Storage.Provider = storage.ProviderRedis
			c.Redis.DialTimeout = "soon"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_ValidateReportsFields(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Catalog.PageSize = 500
	err := cfg.Validate()
	if errors.CodeOf(err) != errors.ErrCodeInvalidRequest {
		t.Fatalf("code = %s", errors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "catalog.page_size") {
		t.Errorf("error should name the config key: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := fmt.Sprintf(`
name: artcache
environment: production
storage:
  base_path: %s
cache:
  ttl: 1m
queue:
  max_retries: 5
repository:
  max_stale_age: 24h
server:
  port: 8081
`, filepath.Join(dir, "cache"))
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARTCACHE_SERVER_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Environment != "production" || cfg.Debug {
		t.Errorf("environment = %q debug = %v", cfg.Environment, cfg.Debug)
	}
	if cfg.Cache.TTL != time.Minute || cfg.Repository.TTL != time.Minute {
		t.Errorf("ttl = %v / %v", cfg.Cache.TTL, cfg.Repository.TTL)
	}
	if cfg.Queue.Retries() != 5 {
		t.Errorf("retries = %d", cfg.Queue.Retries())
	}
	if cfg.Repository.MaxStaleAge != 24*time.Hour {
		t.Errorf("max stale age = %v", cfg.Repository.MaxStaleAge)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("env override lost: port = %d", cfg.Server.Port)
	}
}

func upstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"pagination":{"current_page":1,"total_pages":1},"data":[{"id":%d,"title":%q}]}`,
			100+calls.Load(), r.URL.Query().Get("q"))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Storage.BasePath = t.TempDir()
	cfg.Catalog.HTTP.BaseURL = baseURL
	return cfg
}

func build(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	rt, err := Build(cfg, bootstrap.WithLogger(logger.Nop()), bootstrap.WithoutSummary())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return rt
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestBuild_OfflineRoundTrip(t *testing.T) {
	srv, calls := upstream(t)
	rt := build(t, testConfig(t, srv.URL))

	err := rt.App.RunTask(context.Background(), func(ctx context.Context) error {
		if res := rt.Artworks.Search(ctx, "monet", 1); res.Kind != repository.Fresh {
			return fmt.Errorf("online search: %s %v", res.Kind, res.Err)
		}

		rt.Monitor.Observe(false)
		res := rt.Artworks.GetArtworks(ctx, "Degas", 1)
		if res.Presentation().Kind != repository.Queued {
			return fmt.Errorf("offline miss: %s", res.Presentation().Kind)
		}

		rt.Monitor.Observe(true)
		eventually(t, func() bool {
			keys, err := rt.Cache.Keys(ctx)
			return err == nil && slices.Contains(keys, "degas:page:1")
		}, "replay to write through")

		rt.Monitor.Observe(false)
		if res := rt.Artworks.GetArtworks(ctx, "degas", 1); res.Kind != repository.Fresh {
			return fmt.Errorf("replayed page not served: %s", res.Kind)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestBuild_StreamsConnectivityEvents(t *testing.T) {
	srv, _ := upstream(t)
	cfg := testConfig(t, srv.URL)
	cfg.Server.Enabled = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	rt := build(t, cfg)

	err := rt.App.RunTask(context.Background(), func(ctx context.Context) error {
		base := "http://" + rt.Server.Addr()
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		req, _ := http.NewRequestWithContext(streamCtx, http.MethodGet, base+EventsPath+"?topics="+TopicConnectivity, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		events := make(chan string, 16)
		go func() {
			sc := bufio.NewScanner(resp.Body)
			for sc.Scan() {
				if l := sc.Text(); strings.HasPrefix(l, "data: ") {
					events <- l
				}
			}
		}()
		select {
		case <-events:
		case <-time.After(2 * time.Second):
			return fmt.Errorf("no hello event")
		}
		eventually(t, func() bool { return rt.Events.Hub().ClientCount() == 1 }, "stream registration")

		put, _ := http.NewRequest(http.MethodPut, base+"/api/v1/connectivity", strings.NewReader(`{"connected":false}`))
		put.Header.Set("Content-Type", "application/json")
		presp, err := http.DefaultClient.Do(put)
		if err != nil {
			return err
		}
		presp.Body.Close()

		select {
		case data := <-events:
			if !strings.Contains(data, `"state":"disconnected"`) || !strings.Contains(data, `"previous":"connected"`) {
				return fmt.Errorf("event = %s", data)
			}
		case <-time.After(2 * time.Second):
			return fmt.Errorf("no connectivity event")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuild_ServesHTTP(t *testing.T) {
	srv, _ := upstream(t)
	cfg := testConfig(t, srv.URL)
	cfg.Server.Enabled = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	rt := build(t, cfg)

	err := rt.App.RunTask(context.Background(), func(context.Context) error {
		base := "http://" + rt.Server.Addr()
		resp, err := http.Get(base + "/api/v1/search?q=monet")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search status = %d", resp.StatusCode)
		}

		health, err := http.Get(base + "/health")
		if err != nil {
			return err
		}
		defer health.Body.Close()
		var body struct {
			Status     string `json:"status"`
			Components []struct {
				Name string `json:"name"`
			} `json:"components"`
		}
		if err := json.NewDecoder(health.Body).Decode(&body); err != nil {
			return err
		}
		if body.Status != "healthy" {
			return fmt.Errorf("health = %+v", body)
		}
		if len(body.Components) != 7 {
			return fmt.Errorf("components = %+v", body.Components)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
