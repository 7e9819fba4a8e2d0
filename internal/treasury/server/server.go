// Package server is the HTTP surface of the treasury backend.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/internal/treasury/balance"
	"github.com/con2/treasuryd/internal/treasury/chain"
	"github.com/con2/treasuryd/internal/treasury/earning"
	"github.com/con2/treasuryd/internal/treasury/ledger"
	"github.com/con2/treasuryd/internal/treasury/price"
)

const (
	serviceName    = "CON2 Treasury Backend"
	serviceVersion = "3.0.0"

	// balanceStaleness is how old a cached snapshot may be before /balance
	// refreshes live.
	balanceStaleness = 10 * time.Second

	handlerTimeout = 15 * time.Second
)

// transferExecutor runs one transfer end to end.
type transferExecutor interface {
	Execute(ctx context.Context, req chain.Request) (ledger.Record, error)
}

// walletSource reads live chain state for the status endpoints.
type walletSource interface {
	TreasuryBalance(ctx context.Context) (decimal.Decimal, error)
	Connected() string
}

// Config wires the constructed components into the HTTP server.
type Config struct {
	WalletAddress string
	MinBalance    decimal.Decimal

	Oracle   *price.Oracle
	Balances *balance.Cache
	Wallets  walletSource
	Engine   transferExecutor
	Ledger   *ledger.Ledger
	Earning  *earning.Simulator

	// Background refresh loops started by New; zero disables a loop (used
	// in tests).
	PriceLoop   bool
	BalanceLoop bool
}

// Server owns the handlers and the background refreshers.
type Server struct {
	cfg Config

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New builds the server and starts the background price/balance loops.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	s.startBackground()
	return s
}

func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.cfg.PriceLoop && s.cfg.Oracle != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.cfg.Oracle.Run(ctx)
		}()
	}
	if s.cfg.BalanceLoop && s.cfg.Balances != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.cfg.Balances.Run(ctx)
		}()
	}
}

// Close stops the background loops and the earning simulator.
func (s *Server) Close() {
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
	}
	if s.cfg.Earning != nil {
		_, _ = s.cfg.Earning.Stop()
	}
}

// Router builds the gin handler tree.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleRoot)
	r.GET("/status", s.handleStatus)
	r.GET("/health", s.handleHealth)
	r.GET("/balance", s.handleBalance)
	r.GET("/wallet/balance", s.handleBalance)
	r.GET("/eth-price", s.handlePrice)
	r.GET("/transactions", s.handleTransactions)
	r.GET("/transactions/:id", s.handleTransaction)
	r.GET("/earnings", s.handleEarnings)
	r.GET("/strategies", s.handleStrategies)

	r.POST("/start", s.handleStart)
	r.POST("/stop", s.handleStop)

	// every transfer alias lands on the same handler
	for _, path := range []string{
		"/convert", "/withdraw", "/send-eth",
		"/coinbase-withdraw", "/send-to-coinbase", "/backend-to-coinbase",
		"/treasury-to-coinbase", "/fund-from-earnings", "/transfer",
	} {
		r.POST(path, s.handleConvert)
	}

	return r
}
