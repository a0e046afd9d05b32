package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aradsms/smsbridge/internal/bridge_service/connector"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider/brck"
	"github.com/aradsms/smsbridge/internal/bridge_service/repository/postgres"
	"github.com/aradsms/smsbridge/internal/platform/config"
	"github.com/aradsms/smsbridge/internal/platform/database"
	"github.com/aradsms/smsbridge/internal/platform/logger"
	"github.com/aradsms/smsbridge/internal/platform/messagebroker"
)

const serviceName = "bridge_service"

func main() {
	root := &cobra.Command{
		Use:          "bridge_service",
		Short:        "SMS/MMS carrier bridge",
		Long:         "Sends outbound messages through carrier HTTP APIs and ingests carrier webhooks into the message pipeline.",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(providersCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds the wired components shared by every subcommand.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	dbPool    *pgxpool.Pool
	nats      *messagebroker.NATSClient
	repo      *postgres.PgMessageRepository
	registry  *provider.Registry
	providers *config.ProviderSource
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(serviceName, config.ProviderDefaults{
		Key:    brck.ProviderKey,
		Fields: brck.Schema.Defaults(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSUrl,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"http_port", cfg.BridgeServicePort,
		"metrics_port", cfg.MetricsPort,
	)

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN, database.PoolSettings{
		MaxConns: cfg.PostgresMaxConns,
		MinConns: cfg.PostgresMinConns,
	}, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database connection pool: %w", err)
	}
	repo := postgres.NewPgMessageRepository(dbPool, appLogger)
	if err := repo.EnsureSchema(ctx); err != nil {
		dbPool.Close()
		return nil, err
	}

	nc, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	store := connector.New(repo, nc, appLogger)
	providers := config.NewProviderSource(cfg)
	registry := provider.NewRegistry()
	if err := registry.Register(brck.New(brck.Options{
		Config: providers,
		Store:  store,
		Module: cfg.InboundEventModule,
		Logger: appLogger,
	})); err != nil {
		nc.Close()
		dbPool.Close()
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		logger:    appLogger,
		dbPool:    dbPool,
		nats:      nc,
		repo:      repo,
		registry:  registry,
		providers: providers,
	}, nil
}

func (rt *runtime) Close() {
	rt.nats.Close()
	rt.dbPool.Close()
}
