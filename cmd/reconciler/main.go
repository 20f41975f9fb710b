package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vessel/internal/adapter/repo"
	"vessel/internal/infra"
	"vessel/internal/ledger"
	"vessel/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	ledgerClient, err := ledger.NewClient(ledger.Options{
		RPCURL:         cfg.LedgerRPCURL,
		Logger:         logger,
		RequestTimeout: cfg.LedgerRequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ledger client")
	}
	executor := ledger.NewExecutor(ledgerClient, ledger.ExecutorOptions{
		TokenContract: cfg.TokenContractAddress,
		CustodyWallet: cfg.PlatformWallet,
		TokenDecimals: cfg.TokenDecimals,
		Logger:        logger,
	})

	reconciler := service.NewReconciler(repo.NewSettlementLog(dbpool), executor, cfg.ReconcileInterval, logger)

	logger.Info().Dur("interval", cfg.ReconcileInterval).Msg("reconciler started")
	if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("reconciler stopped")
	}
	logger.Info().Msg("reconciler stopped")
}
