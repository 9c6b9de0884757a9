package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single signed monetary event in a user's ledger.
// Sign convention: positive means the counterparty owes the recording user
// more (the user received); negative means the user gave or owes.
//
// Exactly one of the following holds at any time:
//   - ContactID is nil and DraftToken is set (an unfinalized draft), or
//   - ContactID is set and DraftToken is nil (a finalized transaction).
//
// A transaction transitions from draft to finalized exactly once. Cancelled
// transactions keep their row with DeletedAt set and are excluded from all
// balance computations.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	ContactID     *string         `json:"contactID,omitempty"`
	CurrencyID    string          `json:"currencyID"`
	UserID        string          `json:"userID"` // the ledger this transaction belongs to
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	DraftToken    *string         `json:"draftToken,omitempty"`
	// MirrorOfTransactionID links an automatically recorded mirror entry back
	// to the transaction it negates in the counterpart user's ledger.
	MirrorOfTransactionID *string    `json:"mirrorOfTransactionID,omitempty"`
	DeletedAt             *time.Time `json:"deletedAt,omitempty"`
	AuditFields
}

// IsDraft reports whether the transaction is still an unfinalized draft.
func (t *Transaction) IsDraft() bool {
	return t.DraftToken != nil && *t.DraftToken != ""
}

// IsCancelled reports whether the transaction has been soft-deleted.
func (t *Transaction) IsCancelled() bool {
	return t.DeletedAt != nil
}
