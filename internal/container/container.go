// Package container provides dependency injection for the budget planner.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"

	"smart-budget-planner/internal/auth"
	"smart-budget-planner/internal/config"
	"smart-budget-planner/internal/events"
	"smart-budget-planner/internal/forecast"
	"smart-budget-planner/internal/importer"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/regression"
	"smart-budget-planner/internal/report"
	"smart-budget-planner/internal/store"
	"smart-budget-planner/internal/transactions"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation. All fields are private and only
// reachable through getters.
type Container struct {
	logger       logging.Logger
	config       *config.Config
	store        store.TransactionStore
	resolver     auth.CredentialResolver
	publisher    events.Publisher
	orchestrator *forecast.Orchestrator
	transactions *transactions.Service
	importer     *importer.Importer
	reports      *report.Generator

	closers []func() error
}

// NewContainer creates and wires all application dependencies. A nil logger
// discards output.
func NewContainer(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	c := &Container{logger: logger, config: cfg}

	// Transaction store
	txStore, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Store.PostgresDSN,
		MaxConns:    cfg.Store.MaxConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction store: %w", err)
	}
	c.store = txStore
	c.closers = append(c.closers, txStore.Close)

	// Credential resolver
	switch cfg.Auth.Backend {
	case "redis":
		rr := auth.NewRedisResolver(cfg.Auth.Redis.Addr, cfg.Auth.Redis.Password, cfg.Auth.Redis.DB, cfg.Auth.Redis.KeyPrefix)
		if err := rr.Ping(ctx); err != nil {
			_ = rr.Close()
			_ = c.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Auth.Redis.Addr, err)
		}
		c.resolver = rr
		c.closers = append(c.closers, rr.Close)
	default:
		c.resolver = auth.NewStaticResolver(cfg.TokenMap())
	}

	// Event publisher
	if cfg.Events.Enabled {
		pub, err := events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Exchange, cfg.Events.Queue, logger)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}
		c.publisher = pub
		c.closers = append(c.closers, pub.Close)
	} else {
		c.publisher = events.NopPublisher{}
	}

	// Forecast pipeline, a fresh model per run
	c.orchestrator = forecast.NewOrchestrator(
		store.History{Store: txStore},
		logger,
		forecast.WithModelFactory(forecast.NewForestModelFactory(RegressionConfig(cfg), logger)),
		forecast.WithTimeout(cfg.Forecast.Timeout),
	)

	c.transactions = transactions.NewService(txStore, c.publisher, logger)
	c.importer = importer.New(txStore, logger,
		importer.WithConcurrency(cfg.Import.Concurrency),
		importer.WithCAMTOptions(importer.CAMTOptions{IncludeCredits: cfg.Import.IncludeCredits}))
	c.reports = report.NewGenerator(logger)

	logger.Info("Container initialized successfully",
		logging.Field{Key: "store_backend", Value: cfg.Store.Backend},
		logging.Field{Key: "auth_backend", Value: cfg.Auth.Backend},
		logging.Field{Key: "events_enabled", Value: cfg.Events.Enabled})

	return c, nil
}

// RegressionConfig maps the forecast section onto the ensemble settings.
func RegressionConfig(cfg *config.Config) regression.Config {
	return regression.Config{
		Trees:          cfg.Forecast.Trees,
		MaxDepth:       cfg.Forecast.MaxDepth,
		MinSamplesLeaf: cfg.Forecast.MinSamplesLeaf,
		Bootstrap:      cfg.Forecast.Bootstrap,
		Seed:           cfg.Forecast.Seed,
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the transaction store.
func (c *Container) GetStore() store.TransactionStore {
	return c.store
}

// GetResolver returns the credential resolver.
func (c *Container) GetResolver() auth.CredentialResolver {
	return c.resolver
}

// GetOrchestrator returns the forecast pipeline.
func (c *Container) GetOrchestrator() *forecast.Orchestrator {
	return c.orchestrator
}

// GetTransactions returns the transaction service.
func (c *Container) GetTransactions() *transactions.Service {
	return c.transactions
}

// GetImporter returns the history file importer.
func (c *Container) GetImporter() *importer.Importer {
	return c.importer
}

// GetReports returns the report generator.
func (c *Container) GetReports() *report.Generator {
	return c.reports
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.logger.Info("Container closed")
	return errors.Join(errs...)
}
