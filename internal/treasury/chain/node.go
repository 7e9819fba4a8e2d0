package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NodeClient is the slice of the Ethereum JSON-RPC surface this service
// uses. *ethclient.Client satisfies it; tests substitute fakes.
type NodeClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	Close()
}

// DialFunc opens a client for one RPC endpoint.
type DialFunc func(ctx context.Context, url string) (NodeClient, error)

// DialEthclient is the production dialer.
func DialEthclient(ctx context.Context, url string) (NodeClient, error) {
	return ethclient.DialContext(ctx, url)
}
