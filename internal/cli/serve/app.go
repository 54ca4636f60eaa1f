package serve

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"novelhub/internal/content"
	"novelhub/internal/events"
	"novelhub/internal/protocols/tcp"
	"novelhub/internal/repository"
	"novelhub/internal/repository/memory"
	"novelhub/pkg/config"
	"novelhub/pkg/database"
	"novelhub/pkg/logger"
)

// stores is the persistence backend picked by store.driver
type stores struct {
	comments repository.CommentRepository
	votes    repository.VoteRepository
	reports  repository.ReportRepository
}

// app owns everything serve opens, so it can be closed in reverse order
type app struct {
	cfg     *config.Config
	stores  stores
	redis   redis.UniversalClient
	sink    events.Sink
	targets content.Resolver
	checks  map[string]func(context.Context) error
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, checks: make(map[string]func(context.Context) error)}

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openRedis(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.sink = a.buildSink()
	a.targets = a.buildResolver()
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	if a.cfg.Store.Driver == "memory" {
		store := memory.New()
		a.stores = stores{comments: store.Comments(), votes: store.Votes(), reports: store.Reports()}
		logger.Warn("Using in-memory comment store; data is lost on restart")
		return nil
	}

	dbCfg := database.FromConfig(a.cfg.Database)

	if a.cfg.Database.AutoMigrate {
		db, err := database.NewDB(dbCfg)
		if err != nil {
			return fmt.Errorf("connect for migrations: %w", err)
		}
		err = database.Migrate(db, a.cfg.Database.MigrationsPath, database.Up)
		db.Close()
		if err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}

	pool, err := database.NewPGXPool(dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.checks["database"] = func(ctx context.Context) error { return database.HealthCheck(ctx, pool) }
	logger.Info("Connected to PostgreSQL database")

	a.stores = stores{
		comments: repository.NewCommentRepository(pool),
		votes:    repository.NewVoteRepository(pool),
		reports:  repository.NewReportRepository(pool),
	}
	return nil
}

func (a *app) openRedis(ctx context.Context) error {
	if a.cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connect to redis %s: %w", a.cfg.Redis.Addr, err)
	}

	a.redis = client
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	a.closers = append(a.closers, func() { client.Close() })
	logger.Infof("Connected to Redis at %s", a.cfg.Redis.Addr)
	return nil
}

// buildSink always logs events and forwards them to the configured driver
func (a *app) buildSink() events.Sink {
	sinks := []events.Sink{events.LogSink{}}

	switch a.cfg.Events.Driver {
	case "redis":
		sinks = append(sinks, events.NewRedisSink(a.redis, a.cfg.Events.RedisChannel))
	case "tcp":
		notifier := tcp.NewNotifier(a.cfg.Events.TCPAddr, a.cfg.Events.Rate, a.cfg.Events.Burst)
		a.closers = append(a.closers, func() { notifier.Close() })
		sinks = append(sinks, notifier)
	}

	logger.Infof("Events delivered via %s", a.cfg.Events.Driver)
	return events.NewBus(sinks...)
}

func (a *app) buildResolver() content.Resolver {
	cc := a.cfg.Content
	if cc.BaseURL == "" {
		logger.Warn("content.base_url is empty; every target is accepted")
		return content.AllowAll{}
	}

	var resolver content.Resolver = content.NewHTTPResolver(cc.BaseURL, cc.Timeout)
	if a.redis != nil && cc.CacheTTL > 0 {
		resolver = content.NewCachedResolver(resolver, a.redis, cc.CacheTTL)
	}
	return resolver
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
