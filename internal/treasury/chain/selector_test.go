package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// stubNode answers the liveness probe; everything else is unused by the
// selector tests.
type stubNode struct {
	blockErr error
}

func (n *stubNode) BlockNumber(ctx context.Context) (uint64, error) {
	if n.blockErr != nil {
		return 0, n.blockErr
	}
	return 19000000, nil
}
func (n *stubNode) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (n *stubNode) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (n *stubNode) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (n *stubNode) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}
func (n *stubNode) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error { return nil }
func (n *stubNode) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return nil, errors.New("not found")
}
func (n *stubNode) Close() {}

func testSelector(t *testing.T, endpoints []string, dial DialFunc) *Selector {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewSelector(endpoints, key, time.Second, dial)
}

func TestAcquireFailsOver(t *testing.T) {
	endpoints := []string{
		"https://ethereum.publicnode.com",
		"https://eth.drpc.org",
		"https://rpc.ankr.com/eth",
	}
	var probed []string
	dial := func(ctx context.Context, url string) (NodeClient, error) {
		probed = append(probed, url)
		if url != "https://rpc.ankr.com/eth" {
			return nil, errors.New("connection refused")
		}
		return &stubNode{}, nil
	}

	s := testSelector(t, endpoints, dial)
	if got := s.Connected(); got != "none" {
		t.Fatalf("initial connected got=%q want=none", got)
	}

	w, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer w.Close()

	if len(probed) != 3 {
		t.Fatalf("probed %d endpoints, want 3", len(probed))
	}
	if w.Endpoint() != "rpc" {
		t.Fatalf("endpoint label got=%q want=rpc", w.Endpoint())
	}
	if s.Connected() != "rpc" {
		t.Fatalf("connected got=%q want=rpc", s.Connected())
	}
}

func TestAcquireSkipsDeadProbe(t *testing.T) {
	// dial succeeds but the liveness probe fails; selector must move on
	dial := func(ctx context.Context, url string) (NodeClient, error) {
		if url == "https://eth.llamarpc.com" {
			return &stubNode{}, nil
		}
		return &stubNode{blockErr: errors.New("probe timeout")}, nil
	}
	s := testSelector(t, []string{"https://cloudflare-eth.com", "https://eth.llamarpc.com"}, dial)

	w, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer w.Close()
	if w.Endpoint() != "eth" {
		t.Fatalf("endpoint label got=%q want=eth", w.Endpoint())
	}
}

func TestAcquireExhausted(t *testing.T) {
	dial := func(ctx context.Context, url string) (NodeClient, error) {
		return nil, errors.New("down")
	}
	s := testSelector(t, []string{"https://a.example", "https://b.example"}, dial)

	_, err := s.Acquire(context.Background())
	if !errors.Is(err, ErrEndpointsExhausted) {
		t.Fatalf("err got=%v want=ErrEndpointsExhausted", err)
	}
	// no endpoint answered, so the last label must not change
	if s.Connected() != "none" {
		t.Fatalf("connected got=%q want=none", s.Connected())
	}
}

func TestEndpointLabel(t *testing.T) {
	cases := map[string]string{
		"https://ethereum.publicnode.com": "ethereum",
		"https://rpc.ankr.com/eth":        "rpc",
		"https://cloudflare-eth.com":      "cloudflare-eth",
		"https://eth.drpc.org":            "eth",
	}
	for url, want := range cases {
		if got := endpointLabel(url); got != want {
			t.Errorf("endpointLabel(%q) got=%q want=%q", url, got, want)
		}
	}
}
