package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salescope/salescope/internal/api"
	"github.com/salescope/salescope/internal/api/uistatic"
	"github.com/salescope/salescope/internal/assistant"
	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/config"
	"github.com/salescope/salescope/internal/history"
	historypostgres "github.com/salescope/salescope/internal/history/postgres"
	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/maintenance"
	"github.com/salescope/salescope/internal/nlquery"
	"github.com/salescope/salescope/internal/observability"
	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/storage"
	s3store "github.com/salescope/salescope/internal/storage/s3"
	"github.com/salescope/salescope/internal/store"
	duckdbstore "github.com/salescope/salescope/internal/store/duckdb"
	storepostgres "github.com/salescope/salescope/internal/store/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("salescope-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	objectStore, err := s3store.New(context.Background(), s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	warehouse := openWarehouse(cfg, objectStore)
	defer func() { _ = warehouse.Close() }()

	catalog := schema.NewCatalog()
	assistantService := assistant.New(assistant.Config{
		Model:              cfg.AI.Model,
		GroundingModel:     cfg.AI.GroundingModel,
		MaxTokens:          cfg.AI.MaxTokens,
		GroundingMaxTokens: cfg.AI.GroundingMaxTokens,
		MaxToolRounds:      cfg.AI.MaxToolRounds,
		ToolResultRowCap:   cfg.AI.ToolResultRowCap,
		Dialect:            cfg.Database.Engine,
		RedesignCharts:     cfg.AI.RedesignCharts,
	}, llm.New(cfg.AI.APIKey), warehouse, catalog, logger)

	var recorder history.Recorder
	if cfg.History.Enabled {
		historyDB, err := historypostgres.Open(context.Background(), historypostgres.Config{
			DSN:             cfg.HistoryDSN(),
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()
		recorder = historypostgres.NewRepository(historyDB)
	}

	maintenanceService := &maintenance.Service{
		ObjectStore: objectStore,
		Config: maintenance.Config{
			RetentionInterval:    cfg.Retention.Interval,
			MaxUploadAge:         cfg.Retention.MaxUploadAge,
			DatasetCheckInterval: cfg.Retention.DatasetCheckInterval,
		},
		Logger: logger,
	}

	deps := api.Dependencies{
		Logger:           logger,
		Assistant:        assistantService,
		Store:            warehouse,
		Catalog:          catalog,
		Analyzer:         nlquery.New(catalog, dialectFor(cfg.Database.Engine)),
		ObjectStore:      objectStore,
		History:          recorder,
		Maintenance:      maintenanceService,
		DefaultModel:     cfg.AI.Model,
		SchemaSampleRows: cfg.UI.SchemaSampleRows,
		UI:               uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckStoreHealth(warehouse),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := maintenanceService.Run(ctx); err != nil {
			logger.Error("maintenance loop stopped", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// openWarehouse wires the engine from config behind a lazy pool, so the
// server comes up and reports degraded health while the warehouse is down
// instead of crash-looping.
func openWarehouse(cfg config.Config, objectStore storage.ObjectStore) *store.Lazy {
	if cfg.Database.Engine == config.EngineDuckDB {
		return store.NewLazy(func(ctx context.Context) (store.Store, error) {
			return duckdbstore.Open(ctx, duckdbstore.Config{
				Path:    cfg.Database.DuckDBPath,
				Store:   objectStore,
				Tables:  []string{schema.TableSales, schema.TableProducts, schema.TableVehicles},
				MaxRows: cfg.Database.MaxResultRows,
			})
		})
	}
	return store.NewLazy(func(ctx context.Context) (store.Store, error) {
		return storepostgres.Open(ctx, storepostgres.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			MaxRows:         cfg.Database.MaxResultRows,
		})
	})
}

func dialectFor(engine string) nlquery.Dialect {
	if engine == config.EngineDuckDB {
		return nlquery.DuckDBDialect{}
	}
	return nlquery.PostgresDialect{}
}
