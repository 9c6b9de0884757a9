package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MirrorIntent represents a row in the mirror_outbox table.
// origin_transaction_id is unique so an intent can only ever be applied once.
type MirrorIntent struct {
	IntentID            string          `db:"intent_id"`
	OriginTransactionID string          `db:"origin_transaction_id"`
	ContactID           string          `db:"contact_id"`
	UserID              string          `db:"user_id"`
	CurrencyID          string          `db:"currency_id"`
	Amount              decimal.Decimal `db:"amount"`
	Note                string          `db:"note"`
	Status              string          `db:"status"`
	Attempts            int             `db:"attempts"`
	LastError           string          `db:"last_error"`
	CreatedAt           time.Time       `db:"created_at"`
	ProcessedAt         *time.Time      `db:"processed_at"`
}
