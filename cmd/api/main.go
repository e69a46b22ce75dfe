package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gurwinder-gg/LootBazaar/internal/config"
	"github.com/gurwinder-gg/LootBazaar/internal/handlers"
	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/p2p"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		cfg = config.DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		cfg.SetDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", "maxprocs")
	})); err != nil {
		return fmt.Errorf("failed to set GOMAXPROCS: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(ctx, cfg.Database.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations/api"
	}
	if err := db.Migrate(migrationsPath); err != nil {
		return err
	}

	// Initialize P2P node and connect to the ledger
	identity, err := p2p.LoadOrCreateIdentity(cfg.P2P.IdentityKey)
	if err != nil {
		return err
	}
	p2pNode, err := p2p.NewNode(p2p.NodeConfig{
		ListenAddresses: cfg.P2P.ListenAddresses,
		BootstrapPeers:  cfg.P2P.BootstrapPeers,
		EnableTCP:       cfg.P2P.EnableTCP,
		EnableQUIC:      cfg.P2P.EnableQUIC,
		Identity:        identity,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create P2P node: %w", err)
	}
	if err := p2pNode.Start(ctx); err != nil {
		return fmt.Errorf("failed to start P2P node: %w", err)
	}
	defer p2pNode.Close()

	if cfg.P2P.LedgerPeer == "" {
		return errors.New("p2p.ledger_peer must be set")
	}
	resolveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	ledgerPeer, err := p2pNode.ResolvePeer(resolveCtx, cfg.P2P.LedgerPeer)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to reach ledger peer: %w", err)
	}
	ledgerClient := p2p.NewLedgerClient(p2pNode.Host(), ledgerPeer)
	logger.Info("connected to ledger", "peer_id", ledgerPeer.String(), "api_peer_id", p2pNode.ID().String())

	// Initialize services
	m := metrics.NewDefault()
	clk := clock.New()
	custody := services.NewCustodyAdapter(ledgerClient, cfg.Issuance.MintID, m, logger)
	stakingService := services.NewStakingService(db, custody, clk, services.StakingConfig{
		ProgramID:   cfg.Program.ID,
		MinAmount:   cfg.Staking.MinAmount,
		MinDuration: cfg.Staking.MinDuration,
	}, m, logger)
	rewardService := services.NewRewardService(ledgerClient, services.RewardConfig{
		Collection:    cfg.Rewards.Collection,
		Symbol:        cfg.Rewards.Symbol,
		URI:           cfg.Rewards.URI,
		RoyaltyBps:    cfg.Rewards.RoyaltyBps,
		MintAuthority: cfg.Rewards.MintAuthority,
	}, clk, m, logger)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:    services.NewAuthService(db, cfg.Auth.JWTSecret),
		Staking: stakingService,
		Rewards: rewardService,
		Custody: custody,
		JWT: middleware.JWTConfig{
			Secret:     cfg.Auth.JWTSecret,
			Expiration: time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
		},
		MintID:         cfg.Issuance.MintID,
		MintAuthority:  cfg.Issuance.MintAuthority,
		IssuanceAPIKey: cfg.Issuance.APIKey,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger),
		Metrics:        m,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
