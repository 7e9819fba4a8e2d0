// Package balance caches the treasury's on-chain balance.
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/pkg/logger"
)

// Snapshot source kinds.
const (
	SourceChain    = "chain"
	SourceExplorer = "explorer"
)

// Snapshot is one timestamped balance observation.
type Snapshot struct {
	AmountETH decimal.Decimal `json:"balanceETH"`
	UpdatedAt time.Time       `json:"lastUpdated"`
	Source    string          `json:"source"`
	// Degraded marks a snapshot served from stale cache because both the
	// RPC path and the explorer fallback failed.
	Degraded bool `json:"degraded,omitempty"`
}

// ChainReader reads the treasury balance over RPC.
type ChainReader interface {
	TreasuryBalance(ctx context.Context) (decimal.Decimal, error)
}

// ExplorerReader is the secondary balance source used when no RPC endpoint
// is reachable.
type ExplorerReader interface {
	AccountBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Cache holds the latest balance snapshot, refreshed periodically and on
// demand.
type Cache struct {
	chain    ChainReader
	explorer ExplorerReader
	address  string
	interval time.Duration

	mu   sync.Mutex
	snap Snapshot
}

// NewCache builds a cache for the given treasury address. explorer may be
// nil when no fallback is configured.
func NewCache(chain ChainReader, explorer ExplorerReader, address string, interval time.Duration) *Cache {
	return &Cache{
		chain:    chain,
		explorer: explorer,
		address:  address,
		interval: interval,
	}
}

// Current returns the cached snapshot if it is younger than maxStaleness,
// otherwise refreshes live first. On total failure the last cached value is
// returned with Degraded set, alongside the error.
func (c *Cache) Current(ctx context.Context, maxStaleness time.Duration) (Snapshot, error) {
	c.mu.Lock()
	snap := c.snap
	c.mu.Unlock()

	if !snap.UpdatedAt.IsZero() && time.Since(snap.UpdatedAt) < maxStaleness {
		return snap, nil
	}
	return c.RefreshLive(ctx)
}

// RefreshLive fetches the balance over RPC, falling back to the explorer
// API when the whole endpoint list is down.
func (c *Cache) RefreshLive(ctx context.Context) (Snapshot, error) {
	amount, err := c.chain.TreasuryBalance(ctx)
	source := SourceChain
	if err != nil {
		if c.explorer == nil {
			return c.degrade(err)
		}
		logger.Warnf("rpc balance fetch failed, trying explorer: %v", err)
		amount, err = c.explorer.AccountBalance(ctx, c.address)
		if err != nil {
			return c.degrade(err)
		}
		source = SourceExplorer
	}

	snap := Snapshot{AmountETH: amount, UpdatedAt: time.Now().UTC(), Source: source}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return snap, nil
}

func (c *Cache) degrade(err error) (Snapshot, error) {
	c.mu.Lock()
	c.snap.Degraded = true
	snap := c.snap
	c.mu.Unlock()
	return snap, err
}

// ApplyTransfer installs the post-transfer balance with a fresh timestamp,
// so readers see the transfer before the next periodic refresh.
func (c *Cache) ApplyTransfer(newBalance decimal.Decimal) {
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}
	c.mu.Lock()
	c.snap = Snapshot{AmountETH: newBalance, UpdatedAt: time.Now().UTC(), Source: SourceChain}
	c.mu.Unlock()
}

// Run refreshes shortly after startup, then on the configured interval
// until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}
	if snap, err := c.RefreshLive(ctx); err != nil {
		logger.Warnf("initial balance refresh: %v", err)
	} else {
		logger.Infof("balance %s ETH (%s)", snap.AmountETH.StringFixed(6), snap.Source)
	}

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.RefreshLive(ctx); err != nil {
				logger.Warnf("balance refresh: %v", err)
			}
		}
	}
}
