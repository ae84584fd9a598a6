// Package app assembles the classification pipeline from configuration.
package app

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/ai/tracker"
	"github.com/teranos/qntx-astro/am"
	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/catalog"
	"github.com/teranos/qntx-astro/db"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/heuristic"
	"github.com/teranos/qntx-astro/ingest"
	"github.com/teranos/qntx-astro/logger"
	"github.com/teranos/qntx-astro/merge"
	"github.com/teranos/qntx-astro/synth"
)

// Options override parts of the configuration for one process.
type Options struct {
	// NoAdvisory disables the advisory service regardless of configuration
	NoAdvisory bool
	// NoDatabase skips opening the audit database
	NoDatabase bool
	// Generator replaces the Ollama client (tests)
	Generator advisory.Generator
}

// App holds the wired pipeline and the resources it owns.
type App struct {
	Config     *am.Config
	Catalog    *catalog.Catalog
	Engine     *heuristic.Engine
	Gateway    *advisory.Gateway
	Classifier *ingest.Classifier
	Registry   *prometheus.Registry
	// DB, Store and Usage are nil when auditing is off
	DB    *sql.DB
	Store *audit.SQLStore
	Usage *tracker.UsageTracker

	logger *zap.SugaredLogger
}

// New wires every stage. The caller closes the returned App.
func New(cfg *am.Config, opts Options, log *zap.SugaredLogger) (*App, error) {
	log = logger.OrNop(log)

	cat, err := catalog.Load(cfg.Catalog.Paths)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load domain dictionaries")
	}
	engine := heuristic.NewEngine(cat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Catalog:  cat,
		Engine:   engine,
		Registry: reg,
		logger:   log,
	}

	a.Gateway = newGateway(cfg.Advisory, opts, advisory.NewMetrics(reg), log.Named("advisory"))

	if cfg.Database.Audit && !opts.NoDatabase {
		conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log.Named("db"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open audit database")
		}
		a.DB = conn
		a.Store = audit.NewSQLStore(conn)
		a.Usage = tracker.NewUsageTracker(conn, log.Named("tracker"))
		a.Gateway.SetRecorder(a.Usage)
	}

	deps := ingest.Deps{
		Generator: synth.NewGenerator(engine, log.Named("synth")),
		Gateway:   a.Gateway,
		Resolver: merge.NewResolver(engine, merge.Thresholds{
			High:   cfg.Classify.HighConfidence,
			Medium: cfg.Classify.MediumConfidence,
		}, log.Named("merge")),
		Logger: log.Named("ingest"),
	}
	if a.Store != nil {
		deps.Store = a.Store
	}
	a.Classifier = ingest.NewClassifier(deps)

	log.Infow("Pipeline ready",
		"dictionaries", cat.Dictionaries(),
		"advisory", a.Gateway.Enabled(),
		logger.FieldModel, cfg.Advisory.Model,
		"audit", a.Store != nil,
	)
	return a, nil
}

func newGateway(cfg am.AdvisoryConfig, opts Options, metrics *advisory.Metrics, log *zap.SugaredLogger) *advisory.Gateway {
	gen := opts.Generator
	if gen == nil {
		gen = advisory.NewOllamaClient(advisory.ClientConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			NumPredict:  cfg.NumPredict,
		})
	}
	return advisory.NewGateway(gen, advisory.Config{
		Enabled:           cfg.Enabled && !opts.NoAdvisory,
		Model:             cfg.Model,
		Timeout:           cfg.Timeout(),
		RetryDelay:        cfg.RetryDelay(),
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		RequestsPerMinute: cfg.RequestsPerMinute,
		HealthTTL:         cfg.HealthTTL(),
		SampleValues:      cfg.SampleValues,
	}, metrics, log)
}

// ReloadCatalog re-reads the configured dictionaries. The previous set is
// kept when a file is invalid.
func (a *App) ReloadCatalog() error {
	if err := a.Catalog.Reload(a.Config.Catalog.Paths); err != nil {
		return errors.Wrap(err, "failed to reload domain dictionaries")
	}
	a.logger.Infow("Domain dictionaries reloaded", "dictionaries", a.Catalog.Dictionaries())
	return nil
}

// Close releases the audit database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
