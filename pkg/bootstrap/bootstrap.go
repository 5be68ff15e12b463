// Package bootstrap assembles a tutor runtime (storage, generator, memory,
// pipeline and worker pool) from a resolved configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/tutor/pipeline"
	"github.com/papercomputeco/tutor/pipeline/worker"
	"github.com/papercomputeco/tutor/pkg/adaptive"
	"github.com/papercomputeco/tutor/pkg/checkpoint"
	"github.com/papercomputeco/tutor/pkg/compaction"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/credentials"
	"github.com/papercomputeco/tutor/pkg/eventstream"
	"github.com/papercomputeco/tutor/pkg/eventstream/kafka"
	"github.com/papercomputeco/tutor/pkg/eventstream/nop"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/llm/provider"
	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
	"github.com/papercomputeco/tutor/pkg/storage/postgres"
	"github.com/papercomputeco/tutor/pkg/storage/sqlite"
)

// Storage driver names accepted by storage.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options configures Open.
type Options struct {
	Config *config.Config

	// ConfigDir locates credentials.toml for provider API keys.
	ConfigDir string

	// Generator replaces the configured provider when set.
	Generator llm.Generator

	// Publisher replaces the configured event stream when set.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Stores holds the storage-backed services. Commands that never generate
// use Stores alone.
type Stores struct {
	Driver      storage.Driver
	Mistakes    *memory.Store
	Profiles    *profile.Service
	Checkpoints *checkpoint.Log
	Stats       *stats.Recorder
}

// OpenStores opens the configured store and the services over it.
func OpenStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	if log == nil {
		log = logger.Nop()
	}

	driver, err := OpenDriver(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	mistakes, err := memory.NewStore(memory.Config{
		Store:        driver,
		Policy:       memory.Policy(cfg.Recurrence.Policy),
		Window:       config.Days(cfg.Recurrence.WindowDays),
		MinFrequency: int(cfg.Recurrence.MinFrequency), //nolint:gosec // small config value
		Logger:       log.With("component", "memory"),
	})
	if err != nil {
		_ = driver.Close()
		return nil, err
	}

	return &Stores{
		Driver:   driver,
		Mistakes: mistakes,
		Profiles: profile.NewService(profile.Config{
			Store:    driver,
			Mistakes: mistakes,
			Logger:   log.With("component", "profile"),
		}),
		Checkpoints: checkpoint.NewLog(driver),
		Stats:       stats.NewRecorder(driver),
	}, nil
}

// Close closes the store.
func (s *Stores) Close() error {
	return s.Driver.Close()
}

// Runtime holds every long-lived component of the tutor.
type Runtime struct {
	*Stores

	Generator llm.Generator
	Context   *adaptive.Builder
	Pool      *worker.Pool
	Pipeline  *pipeline.Pipeline

	publisher eventstream.Publisher
}

// Open builds a Runtime. Close releases it.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	gen := opts.Generator
	if gen == nil {
		var err error
		gen, err = NewGenerator(cfg.Generation, opts.ConfigDir, log)
		if err != nil {
			return nil, err
		}
	}

	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Stores: stores, Generator: gen}

	rt.publisher = opts.Publisher
	if rt.publisher == nil {
		rt.publisher, err = NewPublisher(cfg.EventStream, log)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	rt.Context = adaptive.NewBuilder(adaptive.Config{
		Profiles: rt.Profiles,
		Mistakes: rt.Mistakes,
		TopK:     int(cfg.Context.TopK), //nolint:gosec // small config value
		Window:   config.Days(cfg.Context.WindowDays),
		Logger:   log.With("component", "adaptive"),
	})

	rt.Pool, err = worker.NewPool(&worker.Config{
		Publisher: rt.publisher,
		Stats:     rt.Stats,
		Logger:    log.With("component", "worker"),
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	rt.Pipeline, err = pipeline.New(pipeline.Config{
		Generator:   gen,
		Checkpoints: rt.Checkpoints,
		Messages:    rt.Driver,
		Mistakes:    rt.Mistakes,
		Profiles:    rt.Profiles,
		Context:     rt.Context,
		Compactor: compaction.New(compaction.Config{
			Generator: gen,
			Threshold: int(cfg.Compaction.Threshold), //nolint:gosec // small config value
			KeepTail:  int(cfg.Compaction.KeepTail),  //nolint:gosec // small config value
			Timeout:   config.Seconds(cfg.Compaction.TimeoutSeconds),
			Logger:    log.With("component", "compaction"),
		}),
		Pool:              rt.Pool,
		GenerationTimeout: config.Seconds(cfg.Generation.TimeoutSeconds),
		Logger:            log.With("component", "pipeline"),
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	return rt, nil
}

// Close drains the worker pool, then closes the publisher and the store.
func (r *Runtime) Close() error {
	if r.Pool != nil {
		r.Pool.Close()
	}

	var errs []error
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing publisher: %w", err))
		}
	}
	if err := r.Stores.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}
	return errors.Join(errs...)
}

// OpenDriver opens the configured storage backend.
func OpenDriver(ctx context.Context, c config.StorageConfig, log *slog.Logger) (storage.Driver, error) {
	switch c.Driver {
	case DriverSQLite, "":
		d, err := sqlite.NewDriver(ctx, c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info("using SQLite storage", "path", c.SQLitePath)
		return d, nil
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		d, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return d, nil
	case DriverMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (supported: %s, %s, %s)",
			c.Driver, DriverSQLite, DriverPostgres, DriverMemory)
	}
}

// NewGenerator creates the configured generation provider.
func NewGenerator(c config.GenerationConfig, configDir string, log *slog.Logger) (llm.Generator, error) {
	credMgr, err := credentials.NewManager(configDir)
	if err != nil {
		log.Debug("credentials unavailable", "error", err)
		credMgr = nil
	}

	gen, err := provider.New(provider.Config{
		Provider: c.Provider,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		CredMgr:  credMgr,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return gen, nil
}

// NewPublisher creates the Kafka publisher when brokers are configured and
// a no-op publisher otherwise.
func NewPublisher(c config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := config.Brokers(c.KafkaBrokers)
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	log.Info("publishing turn events", "brokers", brokers, "topic", c.KafkaTopic)
	return p, nil
}
