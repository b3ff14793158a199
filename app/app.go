package app

import (
	"context"
	"fmt"

	"github.com/kbukum/artcache/artworks"
	"github.com/kbukum/artcache/bootstrap"
	"github.com/kbukum/artcache/cache"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/component"
	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/observability"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/repository"
	"github.com/kbukum/artcache/server"
	"github.com/kbukum/artcache/server/api"
	"github.com/kbukum/artcache/sse"
	"github.com/kbukum/artcache/storage"
	_ "github.com/kbukum/artcache/storage/local"
)

// Runtime holds the wired parts of a running artcache. Fields set during
// the configure phase (Cache, Repository, Artworks) are nil before the
// bootstrap lifecycle starts.
type Runtime struct {
	App *bootstrap.App[*Config]

	Storage   *storage.Component
	Telemetry *observability.Component
	Monitor   *connectivity.Monitor
	Queue     *offlinequeue.Queue
	Catalog   *catalog.Client
	Server    *server.Server
	Events    *sse.Component

	Cache      *cache.Store
	Repository *repository.Repository
	Artworks   *artworks.Service
}

// Build validates cfg and wires every part of artcache onto a bootstrap
// App. Infrastructure (storage, telemetry) is registered directly; the
// cache and everything that reads through it is built in the configure
// phase, once storage is open. Its workers and the HTTP server are
// registered there and started right after.
func Build(cfg *Config, opts ...bootstrap.Option) (*Runtime, error) {
	a, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := a.Logger

	rt := &Runtime{App: a}
	rt.Storage = storage.NewComponent(cfg.Storage, providerConfig(cfg), log)
	if err := a.RegisterComponent(rt.Storage); err != nil {
		return nil, err
	}

	rt.Telemetry, err = observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, log)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	if err := a.RegisterComponent(rt.Telemetry); err != nil {
		return nil, err
	}
	metrics := rt.Telemetry.Metrics()

	rt.Monitor = connectivity.NewMonitor(log)
	rt.Queue = offlinequeue.New(log,
		offlinequeue.WithMaxRetries(cfg.Queue.Retries()),
		offlinequeue.WithMetrics(metrics),
	)
	rt.Catalog, err = catalog.New(cfg.Catalog, log)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if cfg.Server.Enabled {
		rt.Server = server.New(cfg.Server, log)
		rt.Server.UseTelemetry(metrics)
		rt.Server.RegisterDefaultEndpoints(cfg.Name, a.Components.HealthAll)

		rt.Events = sse.NewComponent(EventsPath, log)
		if err := a.RegisterComponent(rt.Events); err != nil {
			return nil, err
		}
	}

	a.OnConfigure(func(_ context.Context, a *bootstrap.App[*Config]) error {
		return rt.configure(a, metrics)
	})
	a.OnStop(func(context.Context) error {
		// Open streams would otherwise hold up the server's shutdown.
		if rt.Events != nil {
			rt.Events.Hub().Stop()
		}
		rt.Monitor.Close()
		return nil
	})
	return rt, nil
}

func (rt *Runtime) configure(a *bootstrap.App[*Config], metrics *observability.Metrics) error {
	cfg, log := a.Cfg, a.Logger

	rt.Cache = cache.New(rt.Storage.Storage(), log, cache.WithMetrics(metrics))
	repoOpts := []repository.Option{repository.WithMetrics(metrics)}
	if rt.Events != nil {
		repoOpts = append(repoOpts, repository.WithDrainObserver(publishDrain(rt.Events.Hub())))
	}
	rt.Repository = repository.New(cfg.Repository, rt.Catalog, rt.Cache, rt.Queue, rt.Monitor, log, repoOpts...)
	rt.Artworks = artworks.NewService(rt.Repository, rt.Cache, cfg.Cache.TTL, log)

	workers := []component.Component{
		component.NewBackground("offline-queue", component.Description{
			Name:    "Offline Queue",
			Type:    "worker",
			Details: fmt.Sprintf("max_retries=%d", rt.Queue.MaxRetries()),
		}, rt.Queue.Run),
		component.NewBackground("replay", component.Description{
			Name:    "Reconnect Replay",
			Type:    "worker",
			Details: "drains the queue on every reconnect",
		}, rt.Repository.Run),
	}
	if cfg.Connectivity.Enabled {
		prober := connectivity.NewProberFromConfig(rt.Monitor, cfg.Connectivity, log)
		workers = append(workers, component.NewBackground("prober", component.Description{
			Name:    "Connectivity Prober",
			Type:    "worker",
			Details: fmt.Sprintf("%s every %s", cfg.Connectivity.Address, cfg.Connectivity.Interval),
		}, prober.Run))
	}
	if rt.Events != nil {
		workers = append(workers, component.NewBackground("event-bridge", component.Description{
			Name:    "Event Bridge",
			Type:    "worker",
			Details: "connectivity transitions to " + EventsPath,
		}, func(ctx context.Context) error {
			return forwardConnectivity(ctx, rt.Monitor, rt.Events.Hub())
		}))
	}
	for _, w := range workers {
		if err := a.RegisterComponent(w); err != nil {
			return err
		}
	}

	if rt.Server == nil {
		return nil
	}
	api.NewHandler(api.Deps{
		Artworks:     rt.Artworks,
		Queue:        rt.Queue,
		Drainer:      rt.Repository,
		Cache:        rt.Cache,
		Connectivity: rt.Monitor,
		Events:       rt.Events.Hub(),
	}, log).Register(rt.Server.Engine())
	return a.RegisterComponent(server.NewComponent(rt.Server))
}

// providerConfig returns the provider-specific storage settings.
func providerConfig(cfg *Config) any {
	if cfg.Storage.Provider == storage.ProviderRedis {
		rc := cfg.Redis
		return &rc
	}
	return nil
}

// Compile-time checks that the concrete parts satisfy the seams they are
// wired through.
var (
	_ repository.Fetcher   = (*catalog.Client)(nil)
	_ repository.Cache     = (*cache.Store)(nil)
	_ repository.Queue     = (*offlinequeue.Queue)(nil)
	_ repository.Monitor   = (*connectivity.Monitor)(nil)
	_ artworks.Reader      = (*repository.Repository)(nil)
	_ artworks.DetailStore = (*cache.Store)(nil)
	_ api.Artworks         = (*artworks.Service)(nil)
	_ api.Queue            = (*offlinequeue.Queue)(nil)
	_ api.Drainer          = (*repository.Repository)(nil)
	_ api.Cache            = (*cache.Store)(nil)
	_ api.Connectivity     = (*connectivity.Monitor)(nil)
)
