package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relief-token-ledger/config"
	"relief-token-ledger/internal/adapter/billsvc"
	httpHandler "relief-token-ledger/internal/adapter/http/handler"
	pgStorage "relief-token-ledger/internal/adapter/storage/postgres"
	redisStorage "relief-token-ledger/internal/adapter/storage/redis"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/internal/lock"
	"relief-token-ledger/internal/service"
	"relief-token-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Relief Token Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	disasterRepo := pgStorage.NewDisasterRepo(pool)
	claimRepo := pgStorage.NewClaimRepo(pool)
	verdictRepo := pgStorage.NewVerdictRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	sigCache := redisStorage.NewSignatureCache(rdb, cfg.Ledger.SignatureTTL)
	locker := lock.NewRedisLocker(rdb, cfg.Ledger.LockHold, cfg.Ledger.LockWait)

	// Ledger policy
	policy, err := service.PolicyFromConfig(cfg.Ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger policy")
	}

	// Initialize business services
	auditSvc := service.NewAuditService(auditRepo, log)
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, disasterRepo, transactor, locker, auditSvc, policy, log)
	syncSvc := service.NewSyncService(walletRepo, ledgerRepo, transactor, locker, sigCache, auditSvc, policy, log)
	settlementSvc := service.NewSettlementService(walletRepo, ledgerRepo, transactor, locker, auditSvc, policy, log)
	identitySvc := service.NewIdentityClaimService(claimRepo, auditSvc, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Bill validation is optional; without a configured URL, NGO
	// disbursements simply carry no verdict.
	var billCheckSvc ports.BillCheckService
	if cfg.BillSvc.URL != "" {
		validator := billsvc.NewClient(cfg.BillSvc.URL, cfg.BillSvc.Timeout)
		billCheckSvc = service.NewBillCheckService(validator, verdictRepo, auditSvc, cfg.BillSvc.MaxElapsed, log)
		log.Info().Str("url", cfg.BillSvc.URL).Msg("Bill validation enabled")
	} else {
		log.Warn().Msg("Bill validation disabled, no URL configured")
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		SyncSvc:        syncSvc,
		SettlementSvc:  settlementSvc,
		IdentitySvc:    identitySvc,
		BillCheckSvc:   billCheckSvc,
		TokenSvc:       tokenSvc,
		AuditSvc:       auditSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
