package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/owetrack/owetrack/internal/core/domain"
)

// RecordTransactionRequest is the payload for topup/withdraw endpoints.
// Amount is a positive magnitude; the operation decides the sign.
type RecordTransactionRequest struct {
	ContactID  string          `json:"contactID" binding:"required,uuid"`
	CurrencyID string          `json:"currencyID" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" binding:"required,nonzerodecimal"`
	Note       string          `json:"note" binding:"max=500"`
}

// CreateDraftRequest records a transaction before its counterparty is known.
// Amount is signed. DraftToken is optional; one is generated when omitted.
type CreateDraftRequest struct {
	DraftToken string          `json:"draftToken" binding:"omitempty,max=128"`
	CurrencyID string          `json:"currencyID" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" binding:"required,nonzerodecimal"`
	Note       string          `json:"note" binding:"max=500"`
}

// FinalizeDraftRequest attaches a draft to a contact.
type FinalizeDraftRequest struct {
	ContactID string `json:"contactID" binding:"required,uuid"`
}

// ListTransactionsParams holds pagination parameters for transaction listings.
type ListTransactionsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string          `json:"transactionID"`
	ContactID     *string         `json:"contactID,omitempty"`
	CurrencyID    string          `json:"currencyID"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	DraftToken    *string         `json:"draftToken,omitempty"`
	Mirrored      bool            `json:"mirrored"`
	CreatedAt     time.Time       `json:"createdAt"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
}

// ListTransactionsResponse is a page of transactions with a pagination token.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// BalanceResponse defines the data returned for a materialized balance.
type BalanceResponse struct {
	ContactID     string          `json:"contactID"`
	CurrencyID    string          `json:"currencyID"`
	Amount        decimal.Decimal `json:"amount"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		ContactID:     t.ContactID,
		CurrencyID:    t.CurrencyID,
		Amount:        t.Amount,
		Note:          t.Note,
		DraftToken:    t.DraftToken,
		Mirrored:      t.MirrorOfTransactionID != nil,
		CreatedAt:     t.CreatedAt,
		DeletedAt:     t.DeletedAt,
	}
}

// ToTransactionResponses converts a slice of domain transactions.
func ToTransactionResponses(ts []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(ts))
	for i := range ts {
		responses[i] = ToTransactionResponse(&ts[i])
	}
	return responses
}

// ToBalanceResponse converts a domain.Balance to its response DTO.
func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		ContactID:     b.ContactID,
		CurrencyID:    b.CurrencyID,
		Amount:        b.Amount,
		LastUpdatedAt: b.LastUpdatedAt,
	}
}

// ToBalanceResponses converts a slice of domain balances.
func ToBalanceResponses(bs []domain.Balance) []BalanceResponse {
	responses := make([]BalanceResponse, len(bs))
	for i := range bs {
		responses[i] = ToBalanceResponse(&bs[i])
	}
	return responses
}
