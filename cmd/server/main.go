package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/internal/treasury/balance"
	"github.com/con2/treasuryd/internal/treasury/chain"
	"github.com/con2/treasuryd/internal/treasury/config"
	"github.com/con2/treasuryd/internal/treasury/earning"
	"github.com/con2/treasuryd/internal/treasury/ledger"
	"github.com/con2/treasuryd/internal/treasury/price"
	"github.com/con2/treasuryd/internal/treasury/server"
	"github.com/con2/treasuryd/pkg/logger"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var configPath = flag.String("config", os.Getenv("TREASURY_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
	}); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}

	// amounts in JSON payloads are plain numbers, as API consumers expect
	decimal.MarshalJSONWithoutQuotes = true

	key, address, err := loadKey(cfg)
	if err != nil {
		log.Fatalf("load treasury key failed: %v", err)
	}

	minBalance, err := decimal.NewFromString(cfg.MinBalanceETH)
	if err != nil {
		log.Fatalf("bad min_balance_eth %q: %v", cfg.MinBalanceETH, err)
	}
	gasReserve, err := decimal.NewFromString(cfg.GasReserveETH)
	if err != nil {
		log.Fatalf("bad gas_reserve_eth %q: %v", cfg.GasReserveETH, err)
	}

	selector := chain.NewSelector(cfg.RPCEndpoints, key, cfg.ProbeTimeout, nil)
	oracle := price.NewOracle(price.DefaultSources(), cfg.PriceTimeout, cfg.PriceInterval)

	var explorer balance.ExplorerReader
	if cfg.EtherscanAPIKey != "" {
		explorer = chain.NewEtherscan(cfg.EtherscanURL, cfg.EtherscanAPIKey, cfg.PriceTimeout)
	}
	balances := balance.NewCache(selector, explorer, address.Hex(), cfg.BalanceInterval)

	txLog := ledger.New()
	engine := chain.NewEngine(selector, oracle, balances, txLog, gasReserve, cfg.ConfirmTimeout)

	sim := earning.NewSimulator(
		func() decimal.Decimal { return oracle.Current().Price },
		func(ctx context.Context) decimal.Decimal {
			snap, _ := balances.Current(ctx, time.Minute)
			return snap.AmountETH
		},
		minBalance,
	)

	srv := server.New(server.Config{
		WalletAddress: address.Hex(),
		MinBalance:    minBalance,
		Oracle:        oracle,
		Balances:      balances,
		Wallets:       selector,
		Engine:        engine,
		Ledger:        txLog,
		Earning:       sim,
		PriceLoop:     true,
		BalanceLoop:   true,
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("treasury backend listening on %s, wallet %s", cfg.Listen, address.Hex())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	logger.Info("server stopped")
}

func loadKey(cfg *config.Config) (*ecdsa.PrivateKey, common.Address, error) {
	if cfg.PrivateKey != "" {
		return chain.ParseKey(cfg.PrivateKey)
	}
	return chain.DeriveKey(cfg.Mnemonic, cfg.DerivationPath)
}
