// Package earning is the simulated trading engine behind the status
// endpoints. Its counters are monotonic while running, frozen while
// stopped, and reset to zero on every start.
package earning

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/pkg/logger"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("already earning")
	// ErrNotRunning is returned by Stop when nothing is running.
	ErrNotRunning = errors.New("not earning")
)

// BelowMinimumError rejects a start while the treasury balance is under the
// configured floor.
type BelowMinimumError struct {
	Balance decimal.Decimal
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("need %s ETH minimum to start, have %s", e.Minimum, e.Balance)
}

// simulatedTPS is the headline trade rate the accrual arithmetic fabricates.
const simulatedTPS = 1_000_000

const cycleInterval = 100 * time.Millisecond

// PriceFunc supplies the ETH/USD price used to denominate earnings.
type PriceFunc func() decimal.Decimal

// BalanceFunc supplies the treasury balance checked at start.
type BalanceFunc func(ctx context.Context) decimal.Decimal

// Stats is a counter snapshot.
type Stats struct {
	Running        bool
	TotalEarnedUSD float64
	TotalTrades    int64
	StartedAt      time.Time
}

// Runtime since start; zero when never started.
func (s Stats) Runtime() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}

// HourlyRate is earned USD per hour of runtime.
func (s Stats) HourlyRate() float64 {
	hours := s.Runtime().Hours()
	if hours <= 0 {
		return 0
	}
	return s.TotalEarnedUSD / hours
}

// Simulator accrues pseudo-random earnings across the strategy table on a
// fixed tick.
type Simulator struct {
	strategies []Strategy
	price      PriceFunc
	balance    BalanceFunc
	minBalance decimal.Decimal
	rng        *rand.Rand

	mu          sync.Mutex
	running     bool
	totalEarned float64
	totalTrades int64
	startedAt   time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSimulator builds a stopped simulator with a freshly generated strategy
// table.
func NewSimulator(price PriceFunc, balance BalanceFunc, minBalance decimal.Decimal) *Simulator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Simulator{
		strategies: GenerateStrategies(rng),
		price:      price,
		balance:    balance,
		minBalance: minBalance,
		rng:        rng,
	}
}

// Strategies returns the generated table.
func (s *Simulator) Strategies() []Strategy { return s.strategies }

// Stats returns a snapshot of the counters.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Running:        s.running,
		TotalEarnedUSD: s.totalEarned,
		TotalTrades:    s.totalTrades,
		StartedAt:      s.startedAt,
	}
}

// Start resets the counters and launches the accrual loop. It fails when a
// run is active or the treasury balance is below the minimum.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if bal := s.balance(ctx); bal.LessThan(s.minBalance) {
		return &BelowMinimumError{Balance: bal, Minimum: s.minBalance}
	}

	s.running = true
	s.startedAt = time.Now()
	s.totalEarned = 0
	s.totalTrades = 0

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	logger.Infof("earning started: %d strategies, %d tps", len(s.strategies), simulatedTPS)
	return nil
}

// Stop freezes the counters and returns the final totals.
func (s *Simulator) Stop() (Stats, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Stats{}, ErrNotRunning
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done

	stats := s.Stats()
	logger.Infof("earning stopped: $%.2f over %d trades", stats.TotalEarnedUSD, stats.TotalTrades)
	return stats, nil
}

func (s *Simulator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(cycleInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.cycle()
		}
	}
}

// cycle distributes the simulated trade volume across the strategy table
// and accrues each strategy's jittered profit, converted to USD at the
// current price.
func (s *Simulator) cycle() {
	price, _ := s.price().Float64()

	tradesPerStrategy := int64(simulatedTPS / len(s.strategies))
	var cycleProfit float64
	var trades int64
	for _, strat := range s.strategies {
		profitPerTrade := strat.MinProfit * (0.8 + s.rng.Float64()*0.4)
		cycleProfit += float64(tradesPerStrategy) * profitPerTrade * price / float64(simulatedTPS)
		trades += tradesPerStrategy
	}

	s.mu.Lock()
	if s.running {
		s.totalEarned += cycleProfit
		s.totalTrades += trades
	}
	s.mu.Unlock()
}
