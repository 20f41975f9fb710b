package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	// Token ledger
	LedgerRPCURL         string
	TokenContractAddress string
	PlatformWallet       string
	EscrowContract       string
	ExplorerBaseURL      string
	TokenDecimals        int
	LedgerRequestTimeout time.Duration
	ConfirmTimeout       time.Duration
	ConfirmPollInterval  time.Duration

	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	ReconcileInterval time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:  getEnvInt("DB_MIN_CONNS", 1),

		LedgerRPCURL:         os.Getenv("LEDGER_RPC_URL"),
		TokenContractAddress: os.Getenv("TOKEN_CONTRACT_ADDRESS"),
		PlatformWallet:       os.Getenv("PLATFORM_WALLET_ADDRESS"),
		EscrowContract:       os.Getenv("ESCROW_CONTRACT_ADDRESS"),
		ExplorerBaseURL:      getEnv("EXPLORER_BASE_URL", "https://basescan.org"),
		TokenDecimals:        getEnvInt("TOKEN_DECIMALS", 2),
		LedgerRequestTimeout: time.Second * time.Duration(getEnvInt("LEDGER_REQUEST_TIMEOUT_SECONDS", 15)),
		ConfirmTimeout:       time.Second * time.Duration(getEnvInt("LEDGER_CONFIRM_TIMEOUT_SECONDS", 90)),
		ConfirmPollInterval:  time.Second * time.Duration(getEnvInt("LEDGER_CONFIRM_POLL_SECONDS", 3)),

		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ReconcileInterval: time.Second * time.Duration(getEnvInt("RECONCILE_INTERVAL_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LedgerRPCURL == "" {
		return nil, fmt.Errorf("LEDGER_RPC_URL is required")
	}
	if cfg.TokenContractAddress == "" {
		return nil, fmt.Errorf("TOKEN_CONTRACT_ADDRESS is required")
	}
	if cfg.PlatformWallet == "" {
		return nil, fmt.Errorf("PLATFORM_WALLET_ADDRESS is required")
	}
	if cfg.EscrowContract == "" {
		return nil, fmt.Errorf("ESCROW_CONTRACT_ADDRESS is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
