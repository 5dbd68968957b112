// Package bootstrap wires configuration, storage and pipeline components
// into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docintel/api"
	"docintel/cache"
	"docintel/config"
	"docintel/core"
	"docintel/enrich"
	"docintel/extract"
	"docintel/feeds"
	"docintel/index"
	"docintel/publish"
	"docintel/storage"
	"docintel/util/goroutine"
	"docintel/whitelist"
)

// App holds every wired component of the pipeline
type App struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	ExecCtx *core.ExecutionContext

	SQLite      *storage.SQLite
	Observables core.ObservableStorage
	Feeds       core.FeedStorage
	Submissions core.SubmissionStorage
	Catalog     *storage.SQLiteCatalogStorage
	IPRanges    *storage.SQLiteIPRangeStorage
	Graph       core.GraphClient

	RedisCache *cache.Redis
	Publisher  core.Publisher
	Index      *index.BleveClient

	Whitelist *whitelist.Service
	Importer  *whitelist.Importer
	Engine    *extract.Engine
	Chain     *enrich.Chain
	Runner    *feeds.Runner
	Indexer   *index.ContinuousIndexer
	Ops       *api.OpsServer
}

// NewLogger builds the service logger from configuration
func NewLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	var zapCfg zap.Config
	if cfg.Logging.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

// NewApp loads configuration and wires every component. The automation
// account is mandatory: without an identity to attribute pipeline writes to,
// startup fails.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	execCtx, err := core.NewExecutionContext(cfg.Automation.AccountID, cfg.Automation.AccountName, nil)
	if err != nil {
		return nil, fmt.Errorf("automation identity: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, ExecCtx: execCtx}
	if err := app.wire(ctx); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	sqlite, err := storage.NewSQLite(a.Config.SQLitePath, a.Logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.SQLite = sqlite

	observables, err := storage.NewSQLiteObservableStorage(sqlite, a.Logger)
	if err != nil {
		return err
	}
	feedStore, err := storage.NewSQLiteFeedStorage(sqlite, a.Logger)
	if err != nil {
		return err
	}
	submissions, err := storage.NewSQLiteSubmissionStorage(sqlite, a.Logger)
	if err != nil {
		return err
	}
	catalog, err := storage.NewSQLiteCatalogStorage(sqlite, a.Logger)
	if err != nil {
		return err
	}
	ipRanges, err := storage.NewSQLiteIPRangeStorage(sqlite, a.Logger)
	if err != nil {
		return err
	}
	a.Observables = observables
	a.Feeds = feedStore
	a.Submissions = submissions
	a.Catalog = catalog
	a.IPRanges = ipRanges
	a.Graph = storage.NewObservableGraph(observables)

	var lookupCache whitelist.LookupCache
	if a.Config.Redis.Enabled {
		redisCache, err := cache.NewRedis(a.Config.Redis.Addr, a.Config.Redis.Password,
			a.Config.Redis.DB, "whitelist", a.Logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.RedisCache = redisCache
		lookupCache = redisCache
	}

	if a.Config.Kafka.Enabled {
		a.Publisher = publish.NewKafkaPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.Topic, a.Logger)
	} else {
		a.Publisher = publish.NewNoopPublisher(a.Logger)
	}

	a.Whitelist = whitelist.NewService(observables, lookupCache, a.ExecCtx, a.Logger)
	if err := a.Whitelist.Warm(ctx); err != nil {
		return fmt.Errorf("warm whitelist: %w", err)
	}
	a.Importer, err = whitelist.NewImporter(a.Whitelist, a.Logger)
	if err != nil {
		return err
	}

	features, err := a.buildFeatureExtractors(ctx)
	if err != nil {
		return err
	}
	texts := extract.NewFileTextExtractor(filepath.Join(a.Config.DataDir, "texts"))
	a.Engine = extract.NewEngine(texts, features, a.Whitelist, a.Logger)

	fqdnProcessor, err := enrich.NewFQDNURLProcessor(a.Graph, a.Config.Enrich.TagPrefixes, a.Logger)
	if err != nil {
		return err
	}
	a.Chain = enrich.NewChain(a.Logger,
		enrich.NewIPRangeProcessor(ipRanges, a.Logger),
		enrich.NewPrivateIPProcessor(),
		fqdnProcessor,
	)

	a.Runner = feeds.NewRunner(feedStore, submissions, feeds.NewRegistry(),
		a.Publisher, a.ExecCtx, a.Config.Feeds.TickInterval, a.Logger)

	a.Index, err = index.OpenBleve(a.Config.IndexPath, a.Logger)
	if err != nil {
		return err
	}
	a.Indexer = index.NewContinuousIndexer(catalog, catalog, a.Index,
		a.Config.Indexer.PassInterval, a.Logger)

	if a.Config.Ops.Addr != "" {
		a.Ops = api.NewOpsServer(a.Config.Ops.Addr, observables, a.Logger)
	}

	return nil
}

// buildFeatureExtractors combines the fixed extractors with one facet
// extractor per auto-extract facet from the catalog.
func (a *App) buildFeatureExtractors(ctx context.Context) ([]extract.FeatureExtractor, error) {
	features := extract.DefaultFeatureExtractors()

	facets, err := a.Catalog.GetAllFacets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load facets: %w", err)
	}
	for _, facet := range facets {
		if !facet.AutoExtract && facet.ExtractionRegex == "" {
			continue
		}
		tags, err := a.Catalog.GetTagsByFacet(ctx, facet.ID)
		if err != nil {
			return nil, fmt.Errorf("load facet tags: %w", err)
		}
		features = append(features, extract.NewFacetExtractor(facet, tags, a.Logger))
	}
	return features, nil
}

// ImportConfiguredWhitelists imports every warning list named in
// configuration. Individual list failures are logged, not fatal.
func (a *App) ImportConfiguredWhitelists(ctx context.Context) {
	for _, listURL := range a.Config.Whitelist.Lists {
		if _, err := a.Importer.ImportURL(ctx, listURL); err != nil {
			a.Logger.Errorw("Warning list import failed", "url", listURL, "error", err)
		}
	}
}

// Run starts the background loops and blocks until a termination signal or
// context cancellation, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.ImportConfiguredWhitelists(ctx)

	goroutine.Go("feed-runner", a.Logger, func() {
		_ = a.Runner.Run(ctx)
	})
	goroutine.Go("continuous-indexer", a.Logger, func() {
		_ = a.Indexer.Run(ctx)
	})
	if a.Ops != nil {
		goroutine.Go("ops-server", a.Logger, func() {
			if err := a.Ops.Start(); err != nil {
				a.Logger.Errorw("Ops server failed", "error", err)
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Infow("Shutting down on signal", "signal", sig.String())
	case <-ctx.Done():
		a.Logger.Infow("Shutting down on cancellation")
	}

	cancel()
	a.Shutdown()
	return nil
}

// Shutdown releases every held resource. Safe to call on a partially wired
// app.
func (a *App) Shutdown() {
	if a.Ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Ops.Shutdown(ctx)
		cancel()
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.Index != nil {
		_ = a.Index.Close()
	}
	if a.RedisCache != nil {
		_ = a.RedisCache.Close()
	}
	if a.SQLite != nil {
		_ = a.SQLite.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
