package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/clover/internal/repositories/referencename"
	"github.com/Ramsey-B/clover/pkg/batch"
	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/di"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/routes/match"
	candidateroutes "github.com/Ramsey-B/clover/pkg/routes/matchcandidate"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Version is stamped at build time
var Version = "dev"

// app owns every long lived component a command may need
type app struct {
	cfg    *config.Config
	logger ectologger.Logger

	normalizer *normalizers.Normalizer
	resolver   *matching.Resolver

	startup         *startup.Startup
	shutdownTracing func(context.Context) error
	checker         *health.Checker
	db              *database.DatabaseInstance
	redis           *cache.RedisClient
	producer        *kafka.Producer
	candidates      *matchcandidate.Repository
	emitter         *events.Emitter
	matcher         *batch.Matcher
}

// startOptions selects which external dependencies start
type startOptions struct {
	migrate  bool
	services bool
}

// newApp builds the pure matching core. Nothing here touches the network.
func newApp(opts *options) (*app, error) {
	cfg := opts.cfg

	tables, err := normalizers.LoadTables(cfg.TablesOverridePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load match tables: %w", err)
	}
	weights := cfg.Weights()
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	for _, kind := range []normalizers.Kind{normalizers.KindEmployer, normalizers.KindUnion} {
		if err := cfg.Thresholds(kind).Validate(); err != nil {
			return nil, fmt.Errorf("%s thresholds: %w", kind, err)
		}
	}

	normalizer := normalizers.NewNormalizer(tables)
	scorer := similarity.NewScorer(normalizer, cfg.ScorerOptions())

	return &app{
		cfg:        cfg,
		logger:     opts.logger,
		normalizer: normalizer,
		resolver:   matching.NewResolver(scorer, weights),
		startup:    startup.NewStartup(opts.logger, cfg.StartupMaxAttempts),
		checker:    health.NewChecker(Version),
	}, nil
}

// start brings up Postgres and, when asked, migrations, Redis and Kafka,
// then wires the batch matcher over them
func (a *app) start(ctx context.Context, so startOptions) error {
	cfg := a.cfg

	a.startup.AddDependency(startup.Func{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			shutdown, err := tracing.Setup(ctx, cfg.Tracing())
			if err != nil {
				return err
			}
			a.shutdownTracing = shutdown
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if a.shutdownTracing == nil {
				return nil
			}
			return a.shutdownTracing(ctx)
		},
	})
	a.startup.AddDependency(startup.Func{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg.Database(), a.logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		StopFn: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})
	if so.migrate {
		a.startup.AddDependency(startup.Func{
			Name:  "migrations",
			Needs: []string{"database"},
			StartFn: func(context.Context) error {
				return database.NewMigrationService(a.logger, cfg.Migration()).Migrate(a.db.DB.DB, cfg.DatabaseName)
			},
		})
	}
	if so.services && cfg.RedisEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client := cache.NewRedisClient(cfg.Redis(), a.logger)
				if err := client.Connect(ctx); err != nil {
					_ = client.Close()
					return err
				}
				a.redis = client
				return nil
			},
			StopFn: func(context.Context) error { return a.redis.Close() },
		})
	}
	if so.services && cfg.KafkaEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "kafka",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(cfg.Producer(), a.logger)
				return nil
			},
			StopFn: func(context.Context) error { return a.producer.Close() },
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	return a.wire()
}

func (a *app) wire() error {
	cfg := a.cfg

	a.checker.Register("database", health.PingFunc(a.db.PingContext), true)

	// a typed nil would look like a configured store or publisher
	var store cache.Store
	if a.redis != nil {
		store = a.redis
		a.checker.Register("redis", a.redis, false)
	}
	var publisher events.Publisher
	if a.producer != nil {
		publisher = a.producer
	}

	refCache, err := cache.New[*batch.ReferenceSet](store, cfg.ReferenceCacheSize, cfg.ReferenceCacheTTL, a.logger)
	if err != nil {
		return err
	}

	a.candidates = matchcandidate.NewRepository(a.db, a.logger)
	a.emitter = events.NewEmitter(publisher, a.logger)
	a.matcher = batch.NewMatcher(batch.Dependencies{
		Names:      referencename.NewRepository(a.db, a.logger),
		Writer:     a.candidates,
		Tx:         a.db,
		Emitter:    a.emitter,
		Cache:      refCache,
		Normalizer: a.normalizer,
		Resolver:   a.resolver,
	}, batch.Config{
		Workers:    cfg.BatchWorkerCount,
		WriteSize:  cfg.BatchWriteSize,
		Thresholds: cfg.Thresholds,
	}, a.logger)
	return nil
}

// container registers the components the HTTP routes resolve per request
func (a *app) container(id string) (ectocontainer.DIContainer, error) {
	c, err := di.NewContainer(id, a.logger)
	if err != nil {
		return nil, err
	}
	err = errors.Join(
		di.Instance[ectologger.Logger](c, a.logger),
		di.Instance[*normalizers.Normalizer](c, a.normalizer),
		di.Instance[*matching.Resolver](c, a.resolver),
		di.Instance[match.References](c, a.matcher),
		di.Instance[candidateroutes.Repository](c, a.candidates),
		di.Instance[candidateroutes.Emitter](c, a.emitter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register dependencies: %w", err)
	}
	return c, nil
}

// stop releases everything start acquired
func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Shutdown finished with errors")
	}
}
