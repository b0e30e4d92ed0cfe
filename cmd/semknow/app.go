package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/config"
	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/ingest"
	"github.com/c360studio/semknow/metric"
	"github.com/c360studio/semknow/navigator"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/reason"
	"github.com/c360studio/semknow/sparql"
)

// App wires the cache, registry, navigator, reasoner, and ingester over a
// shared NATS-backed store.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embeddedServer *natsserver.Server
	natsClient     *natsclient.Client

	Store     *cache.Store
	Registry  *endpoint.Registry
	Navigator *navigator.Navigator
	Reasoner  *reason.Reasoner
	Ingester  *ingest.Ingester
	Metrics   *metric.Metrics

	watcher *endpoint.Watcher
}

// NewApp creates an unstarted application.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Start connects to NATS (starting an embedded server when configured),
// opens the cache store, and builds every component on top of it.
func (a *App) Start(ctx context.Context) error {
	js, err := a.startNATS(ctx)
	if err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	a.Metrics = metric.New(prometheus.DefaultRegisterer)

	store, err := cache.NewStore(ctx, js, a.logger, cache.WithOpRecorder(a.Metrics))
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	a.Store = store

	executor := sparql.NewHTTPExecutor(
		sparql.WithTimeout(a.cfg.Query.Timeout),
		sparql.WithMaxResponseBytes(a.cfg.Query.MaxResponseBytes),
		sparql.WithLogger(a.logger),
	)

	registryOpts := []endpoint.RegistryOption{
		endpoint.WithDiscoveryTTL(a.cfg.Cache.DiscoveryTTL),
		endpoint.WithLogger(a.logger),
		endpoint.WithDiscoveryRecorder(a.Metrics),
	}
	if a.cfg.Discovery.Enabled {
		registryOpts = append(registryOpts,
			endpoint.WithDiscoverer(endpoint.NewSPARQLDiscoverer(executor, a.cfg.Discovery.URL)))
	}
	a.Registry = endpoint.NewRegistry(store, registryOpts...)

	if a.cfg.Endpoints.OverridesFile != "" {
		if a.cfg.Endpoints.Watch {
			watcher, err := endpoint.NewWatcher(a.Registry, a.cfg.Endpoints.OverridesFile, a.logger)
			if err != nil {
				return fmt.Errorf("watch endpoint overrides: %w", err)
			}
			a.watcher = watcher
			go watcher.Run(ctx)
		} else {
			overrides, err := endpoint.LoadOverrides(a.cfg.Endpoints.OverridesFile)
			if err != nil {
				return fmt.Errorf("load endpoint overrides: %w", err)
			}
			a.Registry.SetOverrides(overrides)
		}
	}

	a.Navigator = navigator.New(store, a.logger)

	a.Reasoner = reason.New(store, a.Registry, executor,
		reason.WithQueryTimeout(a.cfg.Query.Timeout),
		reason.WithLogger(a.logger))

	a.Ingester = ingest.NewIngester(store, ingest.IngesterOptions{
		Fetcher: ingest.NewFetcher(ingest.FetcherOptions{
			Timeout:        a.cfg.Fetch.Timeout,
			UserAgent:      a.cfg.Fetch.UserAgent,
			MaxContentSize: a.cfg.Fetch.MaxContentSize,
			AllowInsecure:  a.cfg.Fetch.AllowInsecure,
		}),
		Normalizer: normalize.New(normalize.Options{
			MaxTriples: a.cfg.Normalize.MaxTriples,
			MaxBytes:   a.cfg.Normalize.MaxBytes,
			Logger:     a.logger,
		}),
		DefaultTTL: a.cfg.Cache.DefaultTTL,
		Logger:     a.logger,
	})

	return nil
}

func (a *App) startNATS(ctx context.Context) (jetstream.JetStream, error) {
	url := a.cfg.NATS.URL

	if url == "" || a.cfg.NATS.Embedded {
		opts := &natsserver.Options{
			Port:      -1,
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
			StoreDir:  a.cfg.NATS.StoreDir,
		}
		ns, err := natsserver.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start")
		}
		a.embeddedServer = ns
		url = ns.ClientURL()
		a.logger.Info("started embedded NATS server", "url", url)
	}

	client, err := natsclient.NewClient(url,
		natsclient.WithName("semknow"),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("wait for NATS connection: %w", err)
	}
	a.natsClient = client

	return client.JetStream()
}

// Shutdown stops the NATS client and the embedded server, if running.
func (a *App) Shutdown(ctx context.Context) {
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Warn("error closing NATS client", "error", err)
		}
	}
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}
