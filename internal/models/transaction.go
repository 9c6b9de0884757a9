package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a row in the transactions table. The table enforces
// CHECK ((contact_id IS NULL) = (draft_token IS NOT NULL)) so a row is either
// a draft or a finalized transaction, never both.
type Transaction struct {
	TransactionID         string          `db:"transaction_id"`
	ContactID             *string         `db:"contact_id"`
	CurrencyID            string          `db:"currency_id"`
	UserID                string          `db:"user_id"`
	Amount                decimal.Decimal `db:"amount"`
	Note                  string          `db:"note"`
	DraftToken            *string         `db:"draft_token"`
	MirrorOfTransactionID *string         `db:"mirror_of_transaction_id"`
	DeletedAt             *time.Time      `db:"deleted_at"`
	AuditFields
}
