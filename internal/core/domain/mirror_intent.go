package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MirrorIntentStatus indicates the processing state of a mirror intent.
type MirrorIntentStatus string

const (
	MirrorPending MirrorIntentStatus = "PENDING"
	MirrorDone    MirrorIntentStatus = "DONE"
	// MirrorFailed is terminal: the worker gave up after repeated failed
	// attempts and the intent needs operator attention.
	MirrorFailed MirrorIntentStatus = "FAILED"
)

// MirrorIntent is a durable outbox record of a pending cross-ledger mirror
// entry. It is written in the same database transaction as the primary
// ledger write and drained by an idempotent processor; OriginTransactionID
// is unique, so replays are no-ops.
type MirrorIntent struct {
	IntentID            string             `json:"intentID"`
	OriginTransactionID string             `json:"originTransactionID"`
	ContactID           string             `json:"contactID"` // reciprocal contact receiving the entry
	UserID              string             `json:"userID"`    // owner of the reciprocal ledger
	CurrencyID          string             `json:"currencyID"`
	Amount              decimal.Decimal    `json:"amount"` // already negated relative to the origin
	Note                string             `json:"note,omitempty"`
	Status              MirrorIntentStatus `json:"status"`
	Attempts            int                `json:"attempts"`
	LastError           string             `json:"lastError,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	ProcessedAt         *time.Time         `json:"processedAt,omitempty"`
}
