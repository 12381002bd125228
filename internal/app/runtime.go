package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/city-pulse/internal/catalog"
	"github.com/samvad-hq/city-pulse/internal/config"
	"github.com/samvad-hq/city-pulse/internal/logger"
	"github.com/samvad-hq/city-pulse/internal/news"
	"github.com/samvad-hq/city-pulse/internal/preview"
	"github.com/samvad-hq/city-pulse/internal/storage"
	"github.com/samvad-hq/city-pulse/pkg/providers"
	"github.com/samvad-hq/city-pulse/pkg/publishers"
)

// Runtime wires storage, the article provider, publishers and the
// coordinator from configuration. It owns their lifetimes.
type Runtime struct {
	cfg         *config.Config
	log         logger.Logger
	store       storage.Store
	fanout      *publishers.Fanout
	provider    *news.Provider
	coordinator *Coordinator
	catalog     *catalog.Catalog
	scraper     *preview.Scraper
}

// New builds a runtime from cfg. Nothing is fetched until Initialize.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	providerReg, err := loadProviders(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	providerList := providerReg.All()
	providerIDs := make([]string, 0, len(providerList))
	for _, p := range providerList {
		providerIDs = append(providerIDs, p.ID)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count":  len(providerIDs),
		"ids":    providerIDs,
		"active": cfg.NewsProvider,
	})

	fetchers := providers.DefaultFetcherRegistry(nil, providers.Credentials{
		EventRegistryAPIKey: cfg.EventRegistryAPIKey,
	})
	if strings.EqualFold(cfg.NewsProvider, providers.TypeEventRegistry) && cfg.EventRegistryAPIKey == "" {
		log.WarnObj("event registry api key not set; feeds will be synthetic", "provider", cfg.NewsProvider)
	}
	provider, err := news.NewProvider(providerReg, fetchers, news.NewGenerator(cfg.SyntheticCount, cfg.SyntheticSeed), news.Options{
		ProviderID:    cfg.NewsProvider,
		PageSize:      cfg.PageSize,
		RecencyWindow: cfg.RecencyWindow(),
		Timeout:       cfg.FetchTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build news provider: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	fanout, err := publishers.FromFile(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers initialized", "publishers_meta", map[string]any{
		"file":  cfg.PublishersFile,
		"count": fanout.Size(),
	})

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		BBoltPath:   cfg.BBoltPath,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
	})

	var events EventPublisher
	if fanout.Size() > 0 {
		events = fanout
	}
	coordinator, err := NewCoordinator(storage.NewRecords(store, log), provider, events, log, Options{
		DefaultCity: cfg.DefaultCity,
	})
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, err
	}

	return &Runtime{
		cfg:         cfg,
		log:         log,
		store:       store,
		fanout:      fanout,
		provider:    provider,
		coordinator: coordinator,
		catalog:     cat,
		scraper:     preview.NewScraper(nil, log),
	}, nil
}

// loadProviders reads the providers file, falling back to the built-in
// entries when the path is empty.
func loadProviders(path string) (*providers.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return providers.DefaultRegistry(), nil
	}
	return providers.LoadRegistry(path)
}

func (r *Runtime) Coordinator() *Coordinator { return r.coordinator }
func (r *Runtime) Provider() *news.Provider { return r.provider }
func (r *Runtime) Catalog() *catalog.Catalog { return r.catalog }
func (r *Runtime) Scraper() *preview.Scraper { return r.scraper }
func (r *Runtime) Config() *config.Config { return r.cfg }
func (r *Runtime) Logger() logger.Logger { return r.log }

// RefreshLoop re-fetches the feed every RefreshInterval until ctx is done.
// It returns immediately when the interval is zero.
func (r *Runtime) RefreshLoop(ctx context.Context) {
	interval := r.cfg.RefreshInterval
	if interval <= 0 {
		return
	}

	r.log.InfoObj("refresh loop starting", "refresh_state", map[string]any{
		"interval": interval.String(),
	})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("refresh loop exiting", "reason", ctx.Err())
			return
		case <-ticker.C:
			start := time.Now()
			applied := r.coordinator.Refresh(ctx)
			r.log.DebugObj("scheduled refresh completed", "refresh_meta", map[string]any{
				"city":       r.coordinator.SelectedCity(),
				"applied":    applied,
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
		}
	}
}

// Close drains pending events and releases publishers and storage.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	r.coordinator.Close()

	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Close(); err != nil {
		r.log.ErrorObj("storage close failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
