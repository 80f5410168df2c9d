package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prior-it/clientbook/config"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/enrichment"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/postgres"
	"github.com/prior-it/clientbook/redis"
	"github.com/prior-it/clientbook/store"
)

// Services are the long-lived dependencies that are shared by every surface.
type Services struct {
	Store    *store.Store
	Enricher core.Enricher
	Registry *prometheus.Registry
	Logger   *slog.Logger

	cfg     *config.Config
	cancel  context.CancelFunc
	closers []func()
	workers sync.WaitGroup
}

// Start opens the configured storage, hydrates the customer store and creates the enricher.
// If the file driver is used with watching enabled, external changes to the customer file are
// picked up until Close is called.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Services{
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
		cfg:      cfg,
		cancel:   cancel,
	}
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	slot, err := s.openSlot(ctx)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.Store = store.New(ctx, slot, store.WithLogger(logger))
	s.Enricher = NewEnricher(cfg, logger, s.Registry)

	if fileSlot, ok := slot.(*store.FileSlot); ok && cfg.Storage.Watch {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			if err := store.Watch(ctx, s.Store, fileSlot.Path(), cfg.Storage.WatchDebounce); err != nil {
				logger.Warn("Not watching the customer file for changes", "error", err)
			}
		}()
	}

	return s, nil
}

func (s *Services) openSlot(ctx context.Context) (store.Slot, error) {
	switch s.cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := postgres.NewDB(ctx, s.cfg.Storage.URL, s.Logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		return postgres.NewSlot(db, s.cfg.Storage.Slot), nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, s.cfg.Storage.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		return redis.NewSlot(client, s.cfg.Storage.Slot), nil

	case config.StorageDriverFile:
		return store.NewFileSlot(s.cfg.Storage.Path), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.cfg.Storage.Driver)
}

// NewEnricher creates the enrichment client described by the config, or an enricher that never
// finds anything if enrichment is disabled.
func NewEnricher(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) core.Enricher {
	if !cfg.Enrichment.Enabled {
		logger.Info("Enrichment is disabled")
		return enrichment.Disabled{}
	}
	return enrichment.NewClient(
		cfg.Enrichment.BaseURL,
		enrichment.WithPaths(cfg.Enrichment.VerifyPath, cfg.Enrichment.PostcodePath),
		enrichment.WithTimeout(cfg.Enrichment.Timeout),
		enrichment.WithMetrics(enrichment.NewMetrics(reg)),
		enrichment.WithLogger(logger),
	)
}

// FormOptions returns the options for new form flows.
func (s *Services) FormOptions() form.Options {
	return form.Options{
		Debounce:            s.cfg.Enrichment.Debounce,
		DiscardStale:        s.cfg.Form.DiscardStale,
		TrackAddressesByKey: s.cfg.Form.TrackAddressesByKey,
		Logger:              s.Logger,
	}
}

// Close stops watching for changes and closes all storage connections.
func (s *Services) Close(_ context.Context) {
	s.cancel()
	s.workers.Wait()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
