// Package price maintains the last-known ETH/USD quote from public feeds.
package price

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/pkg/logger"
)

// Quotes outside (SaneMin, SaneMax) USD are discarded as feed glitches.
var (
	SaneMin = decimal.NewFromInt(100)
	SaneMax = decimal.NewFromInt(100000)
)

// DefaultSeed is served until the first feed responds.
var DefaultSeed = decimal.NewFromInt(3500)

// Quote is the last accepted price observation.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"lastUpdate"`
}

// Source is one price feed with its response extractor.
type Source struct {
	Name  string
	URL   string
	Parse func(body []byte) (decimal.Decimal, error)
}

// DefaultSources returns the feeds tried in order on each refresh.
func DefaultSources() []Source {
	return []Source{
		{
			Name: "Binance",
			URL:  "https://api.binance.com/api/v3/ticker/price?symbol=ETHUSDT",
			Parse: func(body []byte) (decimal.Decimal, error) {
				var out struct {
					Price string `json:"price"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					return decimal.Zero, err
				}
				return decimal.NewFromString(out.Price)
			},
		},
		{
			Name: "CoinGecko",
			URL:  "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd",
			Parse: func(body []byte) (decimal.Decimal, error) {
				var out struct {
					Ethereum struct {
						USD float64 `json:"usd"`
					} `json:"ethereum"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					return decimal.Zero, err
				}
				return decimal.NewFromFloat(out.Ethereum.USD), nil
			},
		},
		{
			Name: "Coinbase",
			URL:  "https://api.coinbase.com/v2/prices/ETH-USD/spot",
			Parse: func(body []byte) (decimal.Decimal, error) {
				var out struct {
					Data struct {
						Amount string `json:"amount"`
					} `json:"data"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					return decimal.Zero, err
				}
				return decimal.NewFromString(out.Data.Amount)
			},
		},
	}
}

// Oracle polls the feeds and caches the last accepted quote. Readers never
// block on a refresh.
type Oracle struct {
	client   *resty.Client
	sources  []Source
	interval time.Duration

	mu    sync.RWMutex
	quote Quote
}

// NewOracle builds an oracle seeded with the static default price.
func NewOracle(sources []Source, timeout, interval time.Duration) *Oracle {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "treasuryd/1.0")

	return &Oracle{
		client:   client,
		sources:  sources,
		interval: interval,
		quote: Quote{
			Price:     DefaultSeed,
			Source:    "static",
			UpdatedAt: time.Time{},
		},
	}
}

// Current returns the cached quote.
func (o *Oracle) Current() Quote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.quote
}

// Refresh tries each source in order and installs the first sane value.
// Individual source failures are logged and skipped; Refresh never fails
// the caller.
func (o *Oracle) Refresh(ctx context.Context) {
	for _, src := range o.sources {
		value, err := o.fetch(ctx, src)
		if err != nil {
			logger.Debugf("price source %s: %v", src.Name, err)
			continue
		}
		o.mu.Lock()
		o.quote = Quote{Price: value, Source: src.Name, UpdatedAt: time.Now().UTC()}
		o.mu.Unlock()
		logger.Infof("ETH price $%s (%s)", value.StringFixed(2), src.Name)
		return
	}
	logger.Warnf("all price sources failed, keeping $%s", o.Current().Price.StringFixed(2))
}

func (o *Oracle) fetch(ctx context.Context, src Source) (decimal.Decimal, error) {
	resp, err := o.client.R().SetContext(ctx).Get(src.URL)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "fetch")
	}
	if !resp.IsSuccess() {
		return decimal.Zero, errors.Errorf("status %d", resp.StatusCode())
	}
	value, err := src.Parse(resp.Body())
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse")
	}
	if value.LessThanOrEqual(SaneMin) || value.GreaterThanOrEqual(SaneMax) {
		return decimal.Zero, errors.Errorf("value %s outside sanity band", value)
	}
	return value, nil
}

// Run refreshes once immediately, then on the configured interval until ctx
// is cancelled.
func (o *Oracle) Run(ctx context.Context) {
	o.Refresh(ctx)

	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Refresh(ctx)
		}
	}
}
