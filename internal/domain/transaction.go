package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one normalized money movement extracted from a
// document or submitted by hand. It is a value type; the sheet layer maps it
// into the Transactions tab columns.
type Transaction struct {
	Account string          // account label, e.g. "Rakuten"
	Subject string          // merchant or item; empty when the source has none
	Time    time.Time       // always UTC
	Amount  decimal.Decimal // expenses are negative
}

// HasSubject reports whether the transaction carries a subject.
func (t Transaction) HasSubject() bool {
	return t.Subject != ""
}
