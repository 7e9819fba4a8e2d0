package chain

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/con2/treasuryd/internal/treasury/ledger"
	"github.com/con2/treasuryd/internal/treasury/price"
	"github.com/con2/treasuryd/pkg/logger"
)

// transferGasLimit is the fixed gas cost of a plain ETH value transfer.
const transferGasLimit = 21000

var (
	// priorityTipWei is the fixed 2 gwei miner tip on every transfer.
	priorityTipWei = big.NewInt(2_000_000_000)
	// safetyMargin is held back when reporting the maximum withdrawable
	// amount.
	safetyMargin = decimal.RequireFromString("0.0005")

	oneHundred = decimal.NewFromInt(100)
)

// QuoteSource supplies the current ETH/USD quote.
type QuoteSource interface {
	Current() price.Quote
}

// BalanceStore receives the reconciled balance after a confirmed transfer.
type BalanceStore interface {
	ApplyTransfer(newBalance decimal.Decimal)
}

// Request is one transfer request. Destination aliases and amount modes
// mirror the HTTP body: the first non-empty destination wins, and amount
// resolution prefers an explicit ETH amount, then a USD amount converted at
// the current quote, then a percentage of the available balance.
type Request struct {
	To         string          `json:"to"`
	ToAddress  string          `json:"toAddress"`
	Treasury   string          `json:"treasury"`
	AmountETH  decimal.Decimal `json:"amountETH"`
	Amount     decimal.Decimal `json:"amount"`
	AmountUSD  decimal.Decimal `json:"amountUSD"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Engine executes on-chain value transfers out of the treasury. A mutex
// serializes transfers end to end so two concurrent requests cannot both
// pass the sufficiency check against the same balance.
type Engine struct {
	selector       *Selector
	quotes         QuoteSource
	balances       BalanceStore
	log            *ledger.Ledger
	gasReserve     decimal.Decimal
	confirmTimeout time.Duration
	pollInterval   time.Duration

	mu sync.Mutex
}

// NewEngine wires the transfer engine. balances may be nil.
func NewEngine(selector *Selector, quotes QuoteSource, balances BalanceStore, log *ledger.Ledger, gasReserve decimal.Decimal, confirmTimeout time.Duration) *Engine {
	return &Engine{
		selector:       selector,
		quotes:         quotes,
		balances:       balances,
		log:            log,
		gasReserve:     gasReserve,
		confirmTimeout: confirmTimeout,
		pollInterval:   3 * time.Second,
	}
}

// Execute runs the full transfer sequence: resolve destination and amount,
// re-fetch the live balance, estimate gas, check sufficiency, submit,
// confirm, reconcile. Validation and sufficiency failures return before any
// ledger write; every attempt that reaches the network is recorded, failed
// or confirmed.
func (e *Engine) Execute(ctx context.Context, req Request) (ledger.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dest := firstNonEmpty(req.To, req.ToAddress, req.Treasury)
	if dest == "" {
		dest = e.selector.Address().Hex()
	}
	if !ValidDestination(dest) {
		return ledger.Record{}, ErrInvalidDestination
	}

	quote := e.quotes.Current()

	amount := decimal.Zero
	switch {
	case req.AmountETH.IsPositive():
		amount = req.AmountETH
	case req.Amount.IsPositive():
		amount = req.Amount
	case req.AmountUSD.IsPositive() && quote.Price.IsPositive():
		amount = req.AmountUSD.Div(quote.Price)
	}

	usePercentage := false
	if amount.IsZero() {
		if req.Percentage.IsZero() {
			return ledger.Record{}, ErrInvalidAmount
		}
		if !req.Percentage.IsPositive() || req.Percentage.GreaterThan(oneHundred) {
			return ledger.Record{}, ErrInvalidAmount
		}
		usePercentage = true
	}

	wallet, err := e.selector.Acquire(ctx)
	if err != nil {
		return e.fail(dest, amount, quote.Price, "acquire", "", err)
	}
	defer wallet.Close()
	logger.Infof("transfer via %s from %s", wallet.Endpoint(), wallet.Address().Hex())

	liveBalance, err := wallet.BalanceETH(ctx)
	if err != nil {
		return e.fail(dest, amount, quote.Price, "balance", "", err)
	}

	if usePercentage {
		amount = liveBalance.Sub(e.gasReserve).Mul(req.Percentage).Div(oneHundred)
		if !amount.IsPositive() {
			return ledger.Record{}, ErrInvalidAmount
		}
	}

	gasPrice, err := wallet.Node().SuggestGasPrice(ctx)
	if err != nil {
		return e.fail(dest, amount, quote.Price, "gas", "", err)
	}
	gasCost := WeiToETH(new(big.Int).Mul(gasPrice, big.NewInt(transferGasLimit)))

	totalNeeded := amount.Add(gasCost)
	if totalNeeded.GreaterThan(liveBalance) {
		maxWithdrawable := liveBalance.Sub(gasCost).Sub(safetyMargin)
		if maxWithdrawable.IsNegative() {
			maxWithdrawable = decimal.Zero
		}
		return ledger.Record{}, &InsufficientBalanceError{
			Available:       liveBalance,
			Requested:       amount,
			GasEstimate:     gasCost,
			TotalNeeded:     totalNeeded,
			MaxWithdrawable: maxWithdrawable,
		}
	}

	signed, err := e.buildAndSign(ctx, wallet, dest, amount, gasPrice)
	if err != nil {
		return e.fail(dest, amount, quote.Price, "submit", "", err)
	}
	if err := wallet.Node().SendTransaction(ctx, signed); err != nil {
		return e.fail(dest, amount, quote.Price, "submit", "", err)
	}
	txHash := signed.Hash()
	logger.Infof("tx submitted %s (%s ETH -> %s)", txHash.Hex(), amount.StringFixed(6), dest)

	receipt, err := e.waitConfirmed(ctx, wallet.Node(), txHash)
	if err != nil {
		return e.fail(dest, amount, quote.Price, "confirm", txHash.Hex(), err)
	}
	actualGas := WeiToETH(new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice))

	rec := e.log.Append(ledger.Record{
		Type:        "Withdrawal",
		AmountETH:   amount,
		AmountUSD:   amount.Mul(quote.Price),
		Destination: dest,
		Status:      ledger.StatusConfirmed,
		TxHash:      txHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsedETH:  actualGas,
	})
	if e.balances != nil {
		e.balances.ApplyTransfer(liveBalance.Sub(amount).Sub(actualGas))
	}
	logger.Infof("tx confirmed %s in block %d, gas %s ETH", txHash.Hex(), receipt.BlockNumber.Uint64(), actualGas.StringFixed(6))
	return rec, nil
}

func (e *Engine) buildAndSign(ctx context.Context, wallet *Wallet, dest string, amount decimal.Decimal, gasPrice *big.Int) (*ethtypes.Transaction, error) {
	node := wallet.Node()
	chainID, err := node.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	nonce, err := node.PendingNonceAt(ctx, wallet.Address())
	if err != nil {
		return nil, errors.Wrap(err, "nonce")
	}

	// cap = 2x the suggested price, tip fixed; cap can never sit below tip
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	if feeCap.Cmp(priorityTipWei) < 0 {
		feeCap = new(big.Int).Set(priorityTipWei)
	}

	destAddr := common.HexToAddress(dest)
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: priorityTipWei,
		GasFeeCap: feeCap,
		Gas:       transferGasLimit,
		To:        &destAddr,
		Value:     ETHToWei(amount),
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), wallet.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}
	return signed, nil
}

// waitConfirmed polls for the receipt until one confirmation or the
// configured timeout.
func (e *Engine) waitConfirmed(ctx context.Context, node NodeClient, txHash common.Hash) (*ethtypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	t := time.NewTicker(e.pollInterval)
	defer t.Stop()
	for {
		receipt, err := node.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return nil, errors.Errorf("transaction %s reverted", txHash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			logger.Debugf("receipt poll %s: %v", txHash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, errors.Wrapf(waitCtx.Err(), "confirmation wait for %s", txHash.Hex())
		case <-t.C:
		}
	}
}

// fail appends a Failed record so no attempt that reached the network is
// ever silently dropped.
func (e *Engine) fail(dest string, amount, priceUSD decimal.Decimal, stage, txHash string, err error) (ledger.Record, error) {
	rec := e.log.Append(ledger.Record{
		Type:        "Withdrawal",
		AmountETH:   amount,
		AmountUSD:   amount.Mul(priceUSD),
		Destination: dest,
		Status:      ledger.StatusFailed,
		TxHash:      txHash,
		Error:       err.Error(),
	})
	logger.Errorf("transfer failed at %s: %v", stage, err)
	return rec, &SubmissionError{Stage: stage, Err: err}
}

// ValidDestination accepts only the 0x-prefixed 40-hex-char address form.
func ValidDestination(dest string) bool {
	if !strings.HasPrefix(dest, "0x") || len(dest) != 42 {
		return false
	}
	return common.IsHexAddress(dest)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
