package chain

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Wallet binds the treasury key to one live RPC endpoint. A wallet is valid
// for a single acquisition; the next call to Selector.Acquire re-probes.
type Wallet struct {
	node     NodeClient
	key      *ecdsa.PrivateKey
	address  common.Address
	endpoint string
}

// Node exposes the underlying RPC client.
func (w *Wallet) Node() NodeClient { return w.node }

// Address is the treasury address this wallet signs for.
func (w *Wallet) Address() common.Address { return w.address }

// Endpoint is the short label of the endpoint this wallet is bound to.
func (w *Wallet) Endpoint() string { return w.endpoint }

// BalanceETH reads the on-chain balance at the latest block.
func (w *Wallet) BalanceETH(ctx context.Context) (decimal.Decimal, error) {
	wei, err := w.node.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "balance at")
	}
	return WeiToETH(wei), nil
}

// Close releases the underlying RPC connection.
func (w *Wallet) Close() {
	if w.node != nil {
		w.node.Close()
	}
}

// ParseKey loads a hex-encoded private key (with or without 0x prefix) and
// returns it with its address.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, common.Address, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "parse private key")
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// DeriveKey derives the treasury key from a BIP-39 mnemonic and derivation
// path.
func DeriveKey(mnemonic, derivationPath string) (*ecdsa.PrivateKey, common.Address, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, common.Address{}, errors.New("mnemonic is required")
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "invalid mnemonic")
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "invalid derivation path")
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "derive account")
	}
	key, err := w.PrivateKey(acct)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "derive key")
	}
	return key, acct.Address, nil
}
