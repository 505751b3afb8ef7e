package cli

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/jasmincar/milo-lab/internal/application/gibbs"
	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres/repositories"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/redis"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/sqlite"
	"github.com/jasmincar/milo-lab/internal/infrastructure/messaging/kafka"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/internal/infrastructure/storage/minio"
	"github.com/jasmincar/milo-lab/internal/interfaces/http/handlers"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// rowStore is what the runtime needs from either database driver.
type rowStore interface {
	gibbs.RowStore
	dissociation.CompoundCatalog
	HealthCheck(ctx context.Context) error
	Close() error
}

// Runtime is the wired engine shared by every command.
type Runtime struct {
	Config    *config.Config
	Logger    logging.Logger
	Registry  *dissociation.Registry
	Service   gibbs.Service
	Metrics   *prometheus.Metrics
	Collector prometheus.MetricsCollector
	Producer  *kafka.Producer
	Events    *kafka.EventPublisher
	Checks    []handlers.HealthChecker

	store   rowStore
	closers []func() error
}

// HasStore reports whether a row store is configured.
func (rt *Runtime) HasStore() bool { return rt.store != nil }

// NewRuntime builds the registry and service from cfg. The registry is
// filled from the row store, when one is configured, and then from the
// equilibrium CSV at dataPath, when given.
func NewRuntime(ctx context.Context, cfg *config.Config, logger logging.Logger, dataPath string) (*Runtime, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rt := &Runtime{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			_ = rt.Close()
		}
	}()

	if err := rt.initMetrics(); err != nil {
		return nil, err
	}
	if err := rt.initStore(ctx); err != nil {
		return nil, err
	}

	regOpts := []dissociation.RegistryOption{dissociation.WithLogger(logger.Named("registry"))}
	if rt.store != nil {
		regOpts = append(regOpts,
			dissociation.WithEstimator(dissociation.StructureEstimator{Catalog: rt.store}),
			dissociation.WithChargeSource(dissociation.CatalogChargeSource{Catalog: rt.store}),
		)
	}
	rt.Registry = dissociation.NewRegistry(regOpts...)

	svcOpts := []gibbs.Option{
		gibbs.WithMetrics(rt.Metrics),
		gibbs.WithDefaultConditions(cfg.Thermo.Conditions),
		gibbs.WithCreateIfMissing(cfg.Thermo.CreateIfMissing),
		gibbs.WithWorkers(cfg.Thermo.Workers),
	}
	if rt.store != nil {
		svcOpts = append(svcOpts, gibbs.WithRowStore(rt.store, cfg.Database.Driver))
	}
	extra, err := rt.initServices(ctx)
	if err != nil {
		return nil, err
	}
	rt.Service = gibbs.NewService(rt.Registry, logger.Named("gibbs"), append(svcOpts, extra...)...)

	if rt.store != nil {
		if _, err := rt.Service.LoadFromStore(ctx); err != nil {
			return nil, err
		}
	}
	if dataPath != "" {
		f, err := os.Open(dataPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot open equilibrium data")
		}
		defer f.Close()
		if _, err := rt.Service.ImportCSV(ctx, f); err != nil {
			return nil, err
		}
	}
	ready = true
	return rt, nil
}

func (rt *Runtime) initMetrics() error {
	mc := rt.Config.Monitoring.Metrics
	if !mc.Enabled {
		rt.Metrics = prometheus.NewNopMetrics()
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(mc), rt.Logger)
	if err != nil {
		return err
	}
	rt.Collector = collector
	rt.Metrics = prometheus.NewMetrics(collector)
	return nil
}

func (rt *Runtime) initStore(ctx context.Context) error {
	db := rt.Config.Database
	switch db.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(db.SQLite.Path, rt.Logger.Named("sqlite"))
		if err != nil {
			return err
		}
		rt.store = st
	case config.DriverPostgres:
		conn, err := postgres.NewConnection(ctx, db.Postgres, rt.Logger.Named("postgres"))
		if err != nil {
			return err
		}
		rt.store = repositories.NewStore(conn, rt.Logger.Named("postgres"))
	default:
		return nil
	}
	rt.closers = append(rt.closers, rt.store.Close)
	rt.Checks = append(rt.Checks, handlers.NewHealthCheck(db.Driver, rt.store.HealthCheck))
	return nil
}

// initServices connects the optional Redis, MinIO and Kafka backends and
// returns the service options that wire them in.
func (rt *Runtime) initServices(ctx context.Context) ([]gibbs.Option, error) {
	var opts []gibbs.Option
	cfg := rt.Config

	if rc := cfg.Database.Redis; rc.Enabled {
		client, err := redis.NewClient(ctx, rc, rt.Logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Checks = append(rt.Checks, handlers.NewHealthCheck("redis", client.Ping))
		opts = append(opts,
			gibbs.WithTransformCache(redis.NewTransformCache(client, rc, rt.Logger.Named("cache"))),
			gibbs.WithLocker(redis.NewMutex(client, "rowstore", rt.Logger.Named("lock"), redis.LockOptionsFrom(rc)...)),
		)
	}

	if mc := cfg.Storage.MinIO; mc.Enabled {
		objects, err := minio.NewObjectStore(ctx, mc, rt.Logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, objects.Close)
		rt.Checks = append(rt.Checks, handlers.NewHealthCheck("minio", objects.HealthCheck))
		opts = append(opts, gibbs.WithObjectStore(objects))
	}

	if kc := cfg.Messaging.Kafka; kc.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(kc), rt.Logger.Named("kafka"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, producer.Close)
		rt.Producer = producer
		rt.Events = kafka.NewEventPublisher(producer, kc.Topic, rt.Logger.Named("events")).
			WithRequestTopic(kc.RequestTopic)
		opts = append(opts, gibbs.WithEventPublisher(rt.Events))
	}
	return opts, nil
}

// Close releases every backend in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return stderrors.Join(errs...)
}

// runtimeFor builds the Runtime of a command from its CLIContext.
func runtimeFor(ctx context.Context, cliCtx *CLIContext) (*Runtime, error) {
	return NewRuntime(ctx, cliCtx.Config, cliCtx.Logger, cliCtx.DataPath)
}

//Personal.AI order the ending
