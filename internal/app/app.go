package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MrSnakeDoc/outpost/internal/config"
	"github.com/MrSnakeDoc/outpost/internal/discovery"
	"github.com/MrSnakeDoc/outpost/internal/httpserver"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/redis"
	"github.com/MrSnakeDoc/outpost/internal/registry"
	"github.com/MrSnakeDoc/outpost/internal/scheduler"
	"github.com/MrSnakeDoc/outpost/internal/store"
	"github.com/MrSnakeDoc/outpost/internal/store/file"
	redisstore "github.com/MrSnakeDoc/outpost/internal/store/redis"
	"github.com/MrSnakeDoc/outpost/internal/version"
)

// Backend is an opened store plus its lifecycle hooks.
type Backend struct {
	Store store.Store
	// Ready reports whether the backing medium is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	Close func() error
}

// OpenStore builds the backend selected by cfg.Store. The redis backend connects
// eagerly and fails if the server cannot be reached within redis_connect_timeout.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (Backend, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		return Backend{Store: store.NewMemory(), Close: noop}, nil

	case config.StoreFile:
		return Backend{Store: file.New(cfg.DataFile, log.Named("store"), m), Close: noop}, nil

	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return Backend{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rs := redisstore.NewStore(client, cfg.RedisKey, log.Named("store"), m)
		return Backend{Store: rs, Ready: rs.Ping, Close: client.Close}, nil

	default:
		return Backend{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	promReg   *prometheus.Registry
	metrics   *metrics.Metrics
	backend   Backend
	registry  *registry.Service
	discovery discovery.Adapter
	host      string
}

// New opens the configured store and builds the registry and discovery adapters.
// Callers must Close the App.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	backend, err := OpenStore(ctx, cfg, loggerClient, m)
	if err != nil {
		return nil, err
	}

	host := discovery.Hostname()
	adapter, err := discovery.FromConfig(cfg, host, loggerClient.Named("discovery"), m)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		promReg:   promReg,
		metrics:   m,
		backend:   backend,
		registry:  registry.New(backend.Store, loggerClient.Named("registry"), m),
		discovery: adapter,
		host:      host,
	}, nil
}

func (a *App) Registry() *registry.Service   { return a.registry }
func (a *App) Discovery() discovery.Adapter  { return a.discovery }
func (a *App) Host() string                  { return a.host }
func (a *App) Config() *config.Config        { return a.cfg }
func (a *App) Gatherer() prometheus.Gatherer { return a.promReg }

// Scan runs the configured discovery adapters once under discovery_timeout.
func (a *App) Scan(ctx context.Context) discovery.Scan {
	return discovery.Run(ctx, a.discovery, a.host, a.cfg.DiscoveryTimeout)
}

// Deps assembles the HTTP handler dependencies.
func (a *App) Deps() deps.Deps {
	return deps.Deps{
		Logger:           a.logger,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedCIDRS:     a.cfg.AllowedCIDRS,
		TrustProxy:       a.cfg.TrustProxy,
		Registry:         a.registry,
		Discovery:        a.discovery,
		Host:             a.host,
		DiscoveryTimeout: a.cfg.DiscoveryTimeout,
		MaxBodyBytes:     a.cfg.MaxBodyBytes,
		Metrics:          a.metrics,
		Gatherer:         a.promReg,
		Ready:            a.backend.Ready,
	}
}

// serveDeps exposes the scheduler to the HTTP layer only while it runs, so
// POST /sync never queues a trigger nobody reads.
func (a *App) serveDeps(syncer *scheduler.DiscoverySync, trigger chan<- struct{}) deps.Deps {
	d := a.Deps()
	if syncer.Enabled() {
		d.SyncTrigger = trigger
		d.SyncStatus = syncer.Status
	}
	return d
}

// Serve runs the HTTP sync server and the optional discovery scheduler until ctx
// is cancelled or SIGINT/SIGTERM arrives. SIGHUP and POST /sync trigger a
// discovery sync while the scheduler runs.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof("🚀 Starting Outpost v%s on %s (store=%s)", version.Version, a.cfg.ListenPort, a.registry.Backend())
	a.logger.Infof("Outpost %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncTrigger := make(chan struct{}, 1)
	syncer := scheduler.NewDiscoverySync(
		a.registry,
		a.discovery,
		a.host,
		a.cfg.DiscoveryTimeout,
		a.logger,
		a.cfg.DiscoveryInterval,
		syncTrigger,
	)
	if err := syncer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start discovery scheduler: %w", err)
	}
	if syncer.Enabled() {
		a.logger.Info("discovery scheduler started",
			logger.String("adapter", a.discovery.Name()),
			logger.Duration("interval", a.cfg.DiscoveryInterval))
		defer syncer.Stop()
		go forwardHangups(ctx, syncTrigger)
	}

	server := httpserver.New(a.cfg, a.logger, a.serveDeps(syncer, syncTrigger))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ Outpost stopped cleanly")
	return nil
}

// Close releases the store backend.
func (a *App) Close() error {
	if a.backend.Close == nil {
		return nil
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
		return err
	}
	return nil
}

func forwardHangups(ctx context.Context, trigger chan<- struct{}) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			select {
			case trigger <- struct{}{}:
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}
