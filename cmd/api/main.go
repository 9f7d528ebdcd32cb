package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-editions/internal/adapter"
	"github.com/feral-file/ff-editions/internal/api/middleware"
	"github.com/feral-file/ff-editions/internal/api/server"
	"github.com/feral-file/ff-editions/internal/api/shared/executor"
	"github.com/feral-file/ff-editions/internal/artist"
	"github.com/feral-file/ff-editions/internal/config"
	"github.com/feral-file/ff-editions/internal/factory"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/metrics"
	"github.com/feral-file/ff-editions/internal/signature"
	"github.com/feral-file/ff-editions/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "api-server",
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Editions API")

	// Connect to database
	driver := store.Driver(cfg.Database.Driver)
	db, err := store.Open(driver, cfg.Database.DSN(), cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if driver == store.DriverPostgres {
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	dataStore := store.NewGormStore(db)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Signatures are bound to the configured chain
	chainID, err := cfg.Ethereum.ChainID.ChainID()
	if err != nil {
		logger.FatalCtx(ctx, "Invalid chain", zap.Error(err), zap.String("chain_id", string(cfg.Ethereum.ChainID)))
	}
	verifier := signature.NewVerifier(chainID)
	clock := adapter.NewClock()

	factoryAddress := mustAddress(ctx, "factory.address", cfg.Factory.Address)
	artists := artist.NewService(dataStore, verifier, clock, m, artist.Config{
		RecoveryAddress: optionalAddress(ctx, "factory.recovery_address", cfg.Factory.RecoveryAddress),
	})
	f := factory.New(factoryAddress, dataStore, artists, verifier, clock)

	// First start records owner, admin and beacon version; later starts keep stored state
	err = f.Initialize(ctx,
		mustAddress(ctx, "factory.owner", cfg.Factory.Owner),
		mustAddress(ctx, "factory.admin", cfg.Factory.Admin),
		layout.Version(cfg.Factory.ImplementationVersion),
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize factory", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Factory ready",
		zap.String("address", factoryAddress.Hex()),
		zap.String("chain_id", chainID.String()),
	)

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	srv := server.New(serverConfig, executor.NewExecutor(artists, f), registry)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

func mustAddress(ctx context.Context, key, value string) common.Address {
	if !common.IsHexAddress(value) {
		logger.FatalCtx(ctx, "Invalid address in config", zap.String("key", key), zap.String("value", value))
	}
	return common.HexToAddress(value)
}

func optionalAddress(ctx context.Context, key, value string) common.Address {
	if value == "" {
		return common.Address{}
	}
	return mustAddress(ctx, key, value)
}
