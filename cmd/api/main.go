package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vessel/internal/adapter/repo"
	"vessel/internal/http/handlers"
	httpapi "vessel/internal/http"
	"vessel/internal/infra"
	"vessel/internal/ledger"
	"vessel/internal/notify"
	"vessel/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.Migrate(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	ledgerClient, err := ledger.NewClient(ledger.Options{
		RPCURL:         cfg.LedgerRPCURL,
		Logger:         logger,
		RequestTimeout: cfg.LedgerRequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ledger client")
	}
	verifier := ledger.NewVerifier(ledgerClient, cfg.TokenContractAddress, cfg.TokenDecimals, cfg.ExplorerBaseURL)
	executor := ledger.NewExecutor(ledgerClient, ledger.ExecutorOptions{
		TokenContract:  cfg.TokenContractAddress,
		CustodyWallet:  cfg.PlatformWallet,
		TokenDecimals:  cfg.TokenDecimals,
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.ConfirmPollInterval,
		Logger:         logger,
	})

	funding := service.NewFundingService(service.Deps{
		Pools:          repo.NewPoolRepository(dbpool),
		Investments:    repo.NewInvestmentRepository(dbpool),
		Invoices:       repo.NewInvoiceRepository(dbpool),
		Users:          repo.NewUserRepository(dbpool),
		Settlements:    repo.NewSettlementLog(dbpool),
		Verifier:       verifier,
		Executor:       executor,
		Notifier:       notify.NewLogNotifier(logger),
		CustodyWallet:  cfg.PlatformWallet,
		EscrowContract: cfg.EscrowContract,
		Logger:         logger,
	})

	app := handlers.NewApp(funding, logger)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
