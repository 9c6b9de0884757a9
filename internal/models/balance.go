package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance represents a row in the balances table, unique on
// (contact_id, currency_id).
type Balance struct {
	ContactID     string          `db:"contact_id"`
	CurrencyID    string          `db:"currency_id"`
	Amount        decimal.Decimal `db:"amount"`
	CreatedAt     time.Time       `db:"created_at"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}
