// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/api"
	"github.com/JakeFAU/container-status-poller/internal/clock/system"
	"github.com/JakeFAU/container-status-poller/internal/config"
	"github.com/JakeFAU/container-status-poller/internal/id/uuid"
	"github.com/JakeFAU/container-status-poller/internal/lock/redislock"
	"github.com/JakeFAU/container-status-poller/internal/metrics"
	"github.com/JakeFAU/container-status-poller/internal/notify"
	"github.com/JakeFAU/container-status-poller/internal/notify/email"
	"github.com/JakeFAU/container-status-poller/internal/notify/kafka"
	"github.com/JakeFAU/container-status-poller/internal/notify/pubsub"
	"github.com/JakeFAU/container-status-poller/internal/poller"
	"github.com/JakeFAU/container-status-poller/internal/provider"
	"github.com/JakeFAU/container-status-poller/internal/provider/eurogate"
	"github.com/JakeFAU/container-status-poller/internal/provider/hhla"
	"github.com/JakeFAU/container-status-poller/internal/ratelimit"
	"github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/storage/gcs"
	"github.com/JakeFAU/container-status-poller/internal/storage/local"
	"github.com/JakeFAU/container-status-poller/internal/storage/memory"
	"github.com/JakeFAU/container-status-poller/internal/storage/postgres"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type closer struct {
	name  string
	close func() error
}

// App holds the services built from one Config.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Poller    *poller.Poller
	Scheduler *poller.Scheduler
	// Email is nil unless the email channel is enabled.
	Email *email.Notifier
	Ready []api.ReadyCheck

	closers []closer
}

type stores struct {
	watches  tracker.WatchStore
	statuses tracker.StatusStore
	runs     tracker.RunStore
}

// New builds every service named in cfg. On error, anything already opened
// is closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	st, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := a.buildRegistry()
	if err != nil {
		return nil, err
	}
	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		return nil, err
	}
	archivers, err := a.buildArchivers(ctx)
	if err != nil {
		return nil, err
	}

	a.Poller, err = poller.New(cfg.PollerSettings(), poller.Deps{
		Watches:   st.watches,
		Statuses:  st.statuses,
		Runs:      st.runs,
		Archivers: archivers,
		Registry:  registry,
		Notifier:  notifier,
		Limiter:   ratelimit.New(cfg.RateLimit()),
		Clock:     system.New(),
		IDs:       uuid.NewGenerator(),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build poller: %w", err)
	}

	var lock poller.Locker
	if cfg.Redis.Addr != "" {
		l := redislock.New(cfg.RedisLock())
		a.addCloser("redis", l.Close)
		a.Ready = append(a.Ready, api.ReadyCheck{Name: "redis", Check: l.Ping})
		lock = l
		logger.Info("using redis run lock", zap.String("addr", cfg.Redis.Addr))
	}
	a.Scheduler = poller.NewScheduler(a.Poller, cfg.Interval(), lock, logger)

	logger.Info("application services initialized",
		zap.Strings("providers", providerNames(registry)),
		zap.String("notifier", notifier.Name()),
		zap.Int("archives", len(archivers)))
	return a, nil
}

func (a *App) buildStores(ctx context.Context) (stores, error) {
	if a.Config.DB.DSN == "" {
		a.Logger.Warn("db.dsn not set; using in-memory store")
		mem := memory.NewStatusStore()
		return stores{watches: mem, statuses: mem, runs: mem}, nil
	}
	pg, err := postgres.New(ctx, a.Config.Postgres())
	if err != nil {
		return stores{}, fmt.Errorf("init postgres: %w", err)
	}
	a.addCloser("postgres", func() error { pg.Close(); return nil })
	if a.Config.DB.AutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			return stores{}, fmt.Errorf("ensure schema: %w", err)
		}
	}
	a.Ready = append(a.Ready, api.ReadyCheck{Name: "postgres", Check: pg.Ping})
	return stores{watches: pg, statuses: pg, runs: pg}, nil
}

func (a *App) buildRegistry() (*provider.Registry, error) {
	order, err := a.Config.ProviderOrder()
	if err != nil {
		return nil, err
	}
	var providers []tracker.Provider
	if a.Config.HHLAEnabled() {
		p, err := hhla.New(a.Config.HHLA())
		if err != nil {
			return nil, fmt.Errorf("init hhla provider: %w", err)
		}
		a.addCloser("hhla", func() error { p.Close(); return nil })
		providers = append(providers, p)
	}
	if a.Config.Providers.Eurogate.Enabled {
		p, err := eurogate.New(a.Config.Eurogate())
		if err != nil {
			return nil, fmt.Errorf("init eurogate provider: %w", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, errors.New("no providers enabled")
	}
	registry, err := provider.NewRegistry(order, providers...)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	return registry, nil
}

func (a *App) buildNotifier(ctx context.Context) (*notify.Fanout, error) {
	var channels []tracker.Notifier
	if a.Config.HasChannel(config.ChannelLog) {
		channels = append(channels, notify.NewLogNotifier(a.Logger))
	}
	if a.Config.HasChannel(config.ChannelEmail) {
		n, err := email.New(a.Config.Email())
		if err != nil {
			return nil, fmt.Errorf("init email notifier: %w", err)
		}
		a.Email = n
		channels = append(channels, n)
	}
	if a.Config.HasChannel(config.ChannelPubSub) {
		p, err := pubsub.New(ctx, a.Config.Notify.PubSub.ProjectID, a.Config.Notify.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		a.addCloser("pubsub", p.Close)
		channels = append(channels, p)
	}
	if a.Config.HasChannel(config.ChannelKafka) {
		p, err := kafka.NewProducer(a.Config.Notify.Kafka.Brokers, a.Config.Notify.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("init kafka notifier: %w", err)
		}
		a.addCloser("kafka", p.Close)
		channels = append(channels, p)
	}
	return notify.NewFanout(channels...), nil
}

func (a *App) buildArchivers(ctx context.Context) ([]storage.Archiver, error) {
	switch a.Config.Archive.Kind {
	case config.ArchiveLocal:
		arch, err := local.New(local.Config{BaseDir: a.Config.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return []storage.Archiver{arch}, nil
	case config.ArchiveGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init storage client: %w", err)
		}
		arch, err := gcs.New(client, gcs.Config{Bucket: a.Config.Archive.Bucket, Prefix: a.Config.Archive.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.addCloser("gcs", arch.Close)
		return []storage.Archiver{arch}, nil
	default:
		return nil, nil
	}
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Close shuts services down in reverse order of construction.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.Logger.Warn("close service failed", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func providerNames(r *provider.Registry) []string {
	var out []string
	for _, n := range r.Names() {
		out = append(out, string(n))
	}
	return out
}
