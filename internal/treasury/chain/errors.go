package chain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrEndpointsExhausted means no configured RPC endpoint answered.
	ErrEndpointsExhausted = errors.New("all RPC endpoints failed")
	// ErrInvalidDestination rejects malformed destination addresses.
	ErrInvalidDestination = errors.New("invalid destination address")
	// ErrInvalidAmount means no amount mode resolved to a positive value.
	ErrInvalidAmount = errors.New("invalid amount or price unavailable")
)

// InsufficientBalanceError carries the diagnostics a caller needs to retry
// with a corrected amount. This is a reported condition, never a silent
// clamp.
type InsufficientBalanceError struct {
	Available       decimal.Decimal
	Requested       decimal.Decimal
	GasEstimate     decimal.Decimal
	TotalNeeded     decimal.Decimal
	MaxWithdrawable decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %s (amount %s + gas %s), have %s",
		e.TotalNeeded, e.Requested, e.GasEstimate, e.Available)
}

// SubmissionError wraps failures from wallet acquisition through
// confirmation. Every SubmissionError has a matching Failed ledger record.
type SubmissionError struct {
	Stage string // acquire, balance, gas, submit, confirm
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
