// Package ledger keeps the in-memory audit log of every transfer attempt.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Status of a recorded transfer attempt.
const (
	StatusConfirmed = "Confirmed"
	StatusFailed    = "Failed"
)

// Record is one transfer attempt. Records are immutable once appended and
// are never deleted.
type Record struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	AmountETH   decimal.Decimal `json:"amountETH"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
	Destination string          `json:"destination,omitempty"`
	Status      string          `json:"status"`
	TxHash      string          `json:"txHash,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	GasUsedETH  decimal.Decimal `json:"gasUsed"`
	Error       string          `json:"error,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Ledger is an append-only log with ids starting at 1 in append order.
type Ledger struct {
	mu      sync.Mutex
	records []Record
	nextID  int64
}

func New() *Ledger {
	return &Ledger{nextID: 1}
}

// Append assigns the next id and stores the record. The stamped record is
// returned.
func (l *Ledger) Append(rec Record) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = l.nextID
	l.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	l.records = append(l.records, rec)
	return rec
}

// Get returns the record with the given id.
func (l *Ledger) Get(id int64) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// ids are dense and start at 1, so the slice index is id-1
	if id < 1 || id > int64(len(l.records)) {
		return Record{}, false
	}
	return l.records[id-1], true
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(limit int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.records)
	if limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// Len reports how many attempts have been recorded.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
