package model

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single posted statement line from any source.
type Transaction struct {
	PostingDate  time.Time           `json:"posting_date"`
	Amount       decimal.Decimal     `json:"amount"`        // Negative for debits, positive for credits
	BalanceAfter decimal.NullDecimal `json:"balance_after"` // Invalid when the statement omits running balances
	ID           string              `json:"id,omitempty"`
	Description  string              `json:"description"` // Raw statement description
	Hash         string              `json:"hash,omitempty"`
	Source       string              `json:"source,omitempty"` // csv, ofx, plaid, simplefin
	// Reference is the line id assigned by the source (OFX FITID, Plaid or SimpleFIN id).
	Reference string `json:"-"`
	// Sequence counts earlier identical lines in the same statement.
	Sequence int `json:"-"`
}

// NormalizedTransaction is a Transaction paired with its canonical merchant key.
type NormalizedTransaction struct {
	MerchantKey string `json:"merchant_key"`
	Transaction
}

// Valid reports whether the record carries the fields the analysis relies on.
func (t Transaction) Valid() bool {
	return !t.PostingDate.IsZero()
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsCredit reports whether money entered the account.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// GenerateHash creates a unique hash for duplicate detection. Lines with a
// source reference hash on it; lines without one hash on their Sequence so
// identical purchases on the same day stay distinct.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s",
		t.PostingDate.Format(DateLayout),
		t.Amount.StringFixed(2),
		t.Description)
	switch {
	case t.Reference != "":
		data += ":ref:" + t.Reference
	case t.Sequence > 0:
		data += ":seq:" + strconv.Itoa(t.Sequence)
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// NumberDuplicates numbers unreferenced lines that repeat an earlier line of
// the same statement and refreshes every hash. Statement order must be stable
// across exports for re-imports to deduplicate.
func NumberDuplicates(txns []Transaction) {
	seen := make(map[string]int, len(txns))
	for i := range txns {
		txn := &txns[i]
		txn.Sequence = 0
		if txn.Reference == "" {
			key := fmt.Sprintf("%s:%s:%s", txn.PostingDate.Format(DateLayout), txn.Amount.StringFixed(2), txn.Description)
			txn.Sequence = seen[key]
			seen[key]++
		}
		txn.Hash = txn.GenerateHash()
	}
}
