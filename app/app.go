package app

import (
	"context"
	"fmt"

	"github.com/kbukum/yttext/api"
	"github.com/kbukum/yttext/bootstrap"
	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/cache/memory"
	"github.com/kbukum/yttext/cache/rediscache"
	"github.com/kbukum/yttext/database"
	"github.com/kbukum/yttext/download"
	"github.com/kbukum/yttext/download/ytdlp"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/jobs/gormstore"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/observability"
	"github.com/kbukum/yttext/redis"
	"github.com/kbukum/yttext/server"
	"github.com/kbukum/yttext/server/endpoint"
	"github.com/kbukum/yttext/sse"
	"github.com/kbukum/yttext/storage"
	"github.com/kbukum/yttext/transcription"
	"github.com/kbukum/yttext/util"
	"github.com/kbukum/yttext/version"

	// Backend adapters register their factories from init.
	_ "github.com/kbukum/yttext/transcription/mlx"
	_ "github.com/kbukum/yttext/transcription/openai"
	_ "github.com/kbukum/yttext/transcription/whisper"
	_ "github.com/kbukum/yttext/transcription/whispercpp"
)

// App is the wired service. Infrastructure components (redis, database,
// storage, sse) start first; the cache, orchestrator, worker pool and HTTP
// server are built in the configure phase on top of them.
type App struct {
	boot    *bootstrap.App[*Config]
	cfg     *Config
	opts    options
	log     *logger.Logger
	metrics *observability.Metrics

	redis    *redis.Component
	database *database.Component
	storage  *storage.Component
	events   *sse.Component
	backends *transcription.Registry

	store        cache.Store
	orchestrator *jobs.Orchestrator
	server       *server.Server
}

// New validates cfg, sets up telemetry, probes the transcription backends
// and registers the infrastructure components.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	o := options{serve: true}
	for _, opt := range opts {
		opt(&o)
	}

	boot, err := bootstrap.NewApp(cfg, o.boot...)
	if err != nil {
		return nil, err
	}
	a := &App{boot: boot, cfg: cfg, opts: o, log: boot.Logger}

	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	boot.OnStop(func(ctx context.Context) error { return shutdown(ctx) })
	if a.metrics, err = observability.NewMetrics(observability.Meter(ServiceName)); err != nil {
		a.log.Warn("Metrics disabled", logger.ErrorFields("metrics", err))
	}

	a.logStartup()

	if cfg.Redis.Enabled {
		a.redis = redis.NewComponent(cfg.Redis, a.log)
		if err := boot.RegisterComponent(a.redis); err != nil {
			return nil, err
		}
	}
	if cfg.Database.Enabled {
		a.database = database.NewComponent(cfg.Database, a.log).WithAutoMigrate(gormstore.Models()...)
		if err := boot.RegisterComponent(a.database); err != nil {
			return nil, err
		}
	}
	a.storage = storage.NewComponent(cfg.Storage, a.log)
	a.events = sse.NewComponent(a.log)
	if err := boot.RegisterComponent(a.storage); err != nil {
		return nil, err
	}
	if err := boot.RegisterComponent(a.events); err != nil {
		return nil, err
	}

	a.backends = o.backends
	if a.backends == nil {
		if a.backends, err = transcription.Build(ctx, cfg.Transcription); err != nil {
			return nil, fmt.Errorf("transcription: %w", err)
		}
	}
	for _, info := range a.backends.Info(ctx) {
		boot.Summary.TrackBackend(info.Name, info.Available, fmt.Sprintf("priority %d", info.Priority))
	}
	boot.OnStop(a.backends.Close)

	boot.OnConfigure(a.configure)
	return a, nil
}

// Run serves until a signal arrives or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	return a.boot.Run(ctx)
}

// RunTask starts the service, runs task and shuts down.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	return a.boot.RunTask(ctx, task)
}

// Jobs returns the orchestrator. It is nil until startup reaches the
// configure phase.
func (a *App) Jobs() *jobs.Orchestrator { return a.orchestrator }

// Backends returns the probed transcription backends.
func (a *App) Backends() *transcription.Registry { return a.backends }

// Addr returns the bound HTTP address, or "" when no server runs.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.log }

func (a *App) configure(ctx context.Context, b *bootstrap.App[*Config]) error {
	a.store = a.newCache()

	var repo jobs.Repository = jobs.NewMemoryRepository()
	if a.database != nil {
		repo = gormstore.New(a.database.DB())
	}

	var dl download.Downloader = a.opts.downloader
	if dl == nil {
		dl = ytdlp.New(a.cfg.Download, nil)
	}

	a.orchestrator = jobs.NewOrchestrator(a.cfg.Jobs, repo, dl, a.backends,
		jobs.WithCache(a.store),
		jobs.WithArchiver(storage.NewTranscriptArchive(a.storage.Storage, a.cfg.Storage.Prefix, a.log)),
		jobs.WithNotifier(sse.NewJobNotifier(a.events.Hub())),
		jobs.WithMetrics(a.metrics),
		jobs.WithLogger(a.log),
	)
	if err := b.RegisterComponent(a.orchestrator.Pool()); err != nil {
		return err
	}
	if a.cfg.Cache.Enabled {
		if err := b.RegisterComponent(cache.NewPruner(a.store, a.cfg.Cache.PruneInterval, a.log)); err != nil {
			return err
		}
	}
	if a.opts.serve {
		a.server = a.newServer(b)
		if err := b.RegisterComponent(server.NewComponent(a.server)); err != nil {
			return err
		}
	}

	// Only the components registered above start here.
	return b.Components.StartAll(ctx)
}

func (a *App) newCache() cache.Store {
	cfg := a.cfg.Cache
	switch {
	case !cfg.Enabled:
		return cache.NewNoop()
	case cfg.Backend == cache.BackendRedis:
		return rediscache.New(a.redis.Client(), cfg, rediscache.WithLogger(a.log))
	default:
		return memory.New(cfg, memory.WithLogger(a.log))
	}
}

func (a *App) newServer(b *bootstrap.App[*Config]) *server.Server {
	srv := server.New(a.cfg.Server, a.metrics, a.log)
	engine := srv.Engine()

	engine.GET("/health", endpoint.Health(a.cfg.Name))
	engine.GET("/health/ready", endpoint.Readiness(a.cfg.Name, a.cfg.Version,
		b.Components.HealthAll, api.BackendsReady(a.backends)))
	engine.GET("/version", endpoint.Version())

	handler := api.New(api.Config{
		RateLimit:    a.cfg.Server.RateLimit,
		KeepAlive:    a.cfg.API.KeepAlive,
		PollInterval: a.cfg.API.PollInterval,
	}, a.orchestrator,
		api.WithCache(a.store),
		api.WithBackends(a.backends),
		api.WithHub(a.events.Hub()),
		api.WithLogger(a.log),
	)
	handler.Register(engine)

	for _, r := range engine.Routes() {
		b.Summary.TrackRoute(r.Method, r.Path)
	}
	return srv
}

func (a *App) logStartup() {
	cfg := a.cfg
	fields := version.Get().Fields()
	fields["environment"] = cfg.Environment
	fields["backends"] = cfg.Transcription.Backends
	fields["cache"] = cfg.Cache.Enabled
	fields["cache_backend"] = cfg.Cache.Backend
	fields["database"] = cfg.Database.Enabled
	fields["storage"] = cfg.Storage.Enabled
	if cfg.Redis.Enabled {
		fields["redis_addr"] = cfg.Redis.Addr
		fields["redis_password"] = mask(cfg.Redis.Password)
	}
	if cfg.Storage.Enabled && cfg.Storage.Provider == storage.ProviderS3 {
		fields["s3_bucket"] = cfg.Storage.Bucket
		fields["s3_access_key"] = mask(cfg.Storage.AccessKey)
		fields["s3_secret_key"] = mask(cfg.Storage.SecretKey)
	}
	a.log.Info("Configuration loaded", fields)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return util.MaskSecret(secret, 4)
}
