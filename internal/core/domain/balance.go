package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the materialized running total for one (contact, currency)
// pair. It caches the sum of all live (non-deleted, non-draft) transaction
// amounts for that pair and must never be treated as independently
// authoritative; the transaction log is the source of truth.
type Balance struct {
	ContactID     string          `json:"contactID"`
	CurrencyID    string          `json:"currencyID"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}
