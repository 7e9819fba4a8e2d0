package earning

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func newTestSimulator(balance string) *Simulator {
	return NewSimulator(
		func() decimal.Decimal { return decimal.NewFromInt(3500) },
		func(ctx context.Context) decimal.Decimal { return decimal.RequireFromString(balance) },
		decimal.RequireFromString("0.01"),
	)
}

func TestStartRejectsBelowMinimum(t *testing.T) {
	s := newTestSimulator("0.005")
	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("want error below minimum balance")
	}
	var below *BelowMinimumError
	if !errors.As(err, &below) {
		t.Fatalf("want BelowMinimumError, got %T: %v", err, err)
	}
	if !below.Balance.Equal(decimal.RequireFromString("0.005")) {
		t.Fatalf("reported balance = %s", below.Balance)
	}
	if s.Stats().Running {
		t.Fatal("must not be running after a rejected start")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s := newTestSimulator("1.0")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err != ErrAlreadyRunning {
		t.Fatalf("second start = %v, want ErrAlreadyRunning", err)
	}
	if !s.Stats().Running {
		t.Fatal("stats should report running")
	}

	if _, err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := s.Stop(); err != ErrNotRunning {
		t.Fatalf("second stop = %v, want ErrNotRunning", err)
	}
	if s.Stats().Running {
		t.Fatal("stats should report stopped")
	}
}

func TestCycleAccruesMonotonically(t *testing.T) {
	s := newTestSimulator("1.0")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	var prevEarned float64
	var prevTrades int64
	for i := 0; i < 5; i++ {
		s.cycle()
		stats := s.Stats()
		if stats.TotalEarnedUSD <= prevEarned {
			t.Fatalf("cycle %d: earned %f, not above %f", i, stats.TotalEarnedUSD, prevEarned)
		}
		if stats.TotalTrades <= prevTrades {
			t.Fatalf("cycle %d: trades %d, not above %d", i, stats.TotalTrades, prevTrades)
		}
		prevEarned, prevTrades = stats.TotalEarnedUSD, stats.TotalTrades
	}
}

func TestCountersFrozenWhileStopped(t *testing.T) {
	s := newTestSimulator("1.0")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.cycle()
	final, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	s.cycle()
	after := s.Stats()
	if after.TotalEarnedUSD != final.TotalEarnedUSD || after.TotalTrades != final.TotalTrades {
		t.Fatalf("counters moved while stopped: %+v vs %+v", after, final)
	}
}

func TestStartResetsCounters(t *testing.T) {
	s := newTestSimulator("1.0")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.cycle()
	if _, err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()
	stats := s.Stats()
	if stats.TotalEarnedUSD != 0 || stats.TotalTrades != 0 {
		t.Fatalf("counters not reset on start: %+v", stats)
	}
}

func TestGenerateStrategies(t *testing.T) {
	s := newTestSimulator("1.0")
	strategies := s.Strategies()
	if len(strategies) != StrategyCount {
		t.Fatalf("strategy count = %d, want %d", len(strategies), StrategyCount)
	}
	seen := make(map[int]bool, len(strategies))
	for _, strat := range strategies {
		if seen[strat.ID] {
			t.Fatalf("duplicate strategy id %d", strat.ID)
		}
		seen[strat.ID] = true
		if strat.APY < 30000 || strat.APY > 80000 {
			t.Fatalf("strategy %d APY %f out of range", strat.ID, strat.APY)
		}
		if strat.MinProfit < 0.001 || strat.MinProfit > 0.006 {
			t.Fatalf("strategy %d MinProfit %f out of range", strat.ID, strat.MinProfit)
		}
		if !strat.Active {
			t.Fatalf("strategy %d should start active", strat.ID)
		}
	}
}
