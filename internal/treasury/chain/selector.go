package chain

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/pkg/logger"
)

// Selector walks the configured RPC endpoint list in priority order and
// hands out a wallet bound to the first endpoint that answers a liveness
// probe. There is no memory across calls: every acquisition starts from the
// top of the list.
type Selector struct {
	endpoints    []string
	dial         DialFunc
	probeTimeout time.Duration
	key          *ecdsa.PrivateKey
	address      common.Address

	mu        sync.Mutex
	connected string
}

// NewSelector builds a selector over the given endpoints. dial may be nil,
// in which case ethclient is used.
func NewSelector(endpoints []string, key *ecdsa.PrivateKey, probeTimeout time.Duration, dial DialFunc) *Selector {
	if dial == nil {
		dial = DialEthclient
	}
	return &Selector{
		endpoints:    endpoints,
		dial:         dial,
		probeTimeout: probeTimeout,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		connected:    "none",
	}
}

// Address is the treasury address the selector's wallets sign for.
func (s *Selector) Address() common.Address { return s.address }

// Connected reports the short label of the endpoint that served the most
// recent acquisition, or "none".
func (s *Selector) Connected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Acquire probes the endpoints in order and returns a wallet bound to the
// first one that responds. The caller owns the wallet and must Close it.
func (s *Selector) Acquire(ctx context.Context) (*Wallet, error) {
	for _, url := range s.endpoints {
		node, err := s.probe(ctx, url)
		if err != nil {
			logger.Debugf("rpc %s: %v", endpointLabel(url), err)
			continue
		}
		label := endpointLabel(url)
		s.mu.Lock()
		s.connected = label
		s.mu.Unlock()
		return &Wallet{node: node, key: s.key, address: s.address, endpoint: label}, nil
	}
	return nil, ErrEndpointsExhausted
}

func (s *Selector) probe(ctx context.Context, url string) (NodeClient, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	node, err := s.dial(probeCtx, url)
	if err != nil {
		return nil, err
	}
	if _, err := node.BlockNumber(probeCtx); err != nil {
		node.Close()
		return nil, err
	}
	return node, nil
}

// TreasuryBalance acquires a wallet and reads the treasury's on-chain
// balance through it.
func (s *Selector) TreasuryBalance(ctx context.Context) (decimal.Decimal, error) {
	w, err := s.Acquire(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer w.Close()
	return w.BalanceETH(ctx)
}

// endpointLabel shortens an RPC URL to the first host segment, e.g.
// "https://rpc.ankr.com/eth" -> "rpc".
func endpointLabel(url string) string {
	host := url
	if i := strings.Index(host, "//"); i >= 0 {
		host = host[i+2:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, '.'); i >= 0 {
		host = host[:i]
	}
	return host
}
