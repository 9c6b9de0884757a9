package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/owetrack/owetrack/internal/core/domain"
)

// ContactRepositoryFacade defines the persistence operations for Contacts.
type ContactRepositoryFacade interface {
	SaveContact(ctx context.Context, contact domain.Contact) error
	FindContactByID(ctx context.Context, contactID string) (*domain.Contact, error)
	ListContactsByOwner(ctx context.Context, ownerUserID string, limit int, nextToken *string) ([]domain.Contact, *string, error)
	UpdateContact(ctx context.Context, contact domain.Contact) error
	// FindReciprocal locates the contact owned by ownerUserID whose
	// ref_user_id is refUserID, if one exists.
	FindReciprocal(ctx context.Context, ownerUserID, refUserID string) (*domain.Contact, error)
	// GetOrCreateReciprocal returns the reciprocal contact for a linked pair,
	// creating it on first use. Safe under concurrent callers.
	GetOrCreateReciprocal(ctx context.Context, ownerUserID, refUserID, name string, now time.Time) (*domain.Contact, error)
}

// LedgerRepositoryFacade defines the persistence operations for the
// transaction log. Writes that affect a balance perform the balance
// adjustment in the same database transaction as the transaction-row change.
type LedgerRepositoryFacade interface {
	// CreateTransaction inserts the transaction row and, unless it is a
	// draft, applies the balance delta for its (contact, currency) pair.
	// A non-nil intent is enqueued to the mirror outbox in the same scope.
	CreateTransaction(ctx context.Context, txn domain.Transaction, intent *domain.MirrorIntent) error
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// FindActiveTransactionForUser loads a live, finalized transaction
	// belonging to userID's ledger.
	FindActiveTransactionForUser(ctx context.Context, transactionID, userID string) (*domain.Transaction, error)
	FindDraftByToken(ctx context.Context, draftToken string) (*domain.Transaction, error)
	// DeleteDraftByToken hard-deletes an unfinalized draft. Drafts never
	// touched balances, so no balance adjustment happens.
	DeleteDraftByToken(ctx context.Context, draftToken, userID string) error
	// FinalizeDraft attaches the draft to contactID, clears the token and
	// applies the stored amount to the balance, all in one scope. Returns
	// ErrConflict when the token was already consumed.
	FinalizeDraft(ctx context.Context, draftToken, contactID, updatedByUserID string, now time.Time, intent *domain.MirrorIntent) (*domain.Transaction, error)
	// CancelTransaction soft-deletes the transaction and reverses its
	// balance effect in one scope. Returns ErrConflict if already deleted.
	CancelTransaction(ctx context.Context, txn domain.Transaction, updatedByUserID string, now time.Time) error
	// FindTransactionByMirrorOrigin returns the live mirror entry whose
	// mirror_of_transaction_id equals originTransactionID.
	FindTransactionByMirrorOrigin(ctx context.Context, originTransactionID string) (*domain.Transaction, error)
	// FindActiveTransactionsByValue returns live transactions on a contact
	// matching (currency, amount) exactly. Fallback reciprocal lookup only.
	FindActiveTransactionsByValue(ctx context.Context, contactID, currencyID string, amount decimal.Decimal) ([]domain.Transaction, error)
	ListTransactionsByContact(ctx context.Context, contactID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// BalanceRepositoryFacade defines the persistence operations for the
// materialized balance store.
type BalanceRepositoryFacade interface {
	GetOrCreate(ctx context.Context, contactID, currencyID string, now time.Time) (*domain.Balance, error)
	// Increment applies an atomic delta; it must never be implemented as
	// read-then-write so concurrent increments cannot lose updates.
	Increment(ctx context.Context, contactID, currencyID string, delta decimal.Decimal, now time.Time) error
	// IncrementInTx is Increment within a caller-owned database transaction.
	IncrementInTx(ctx context.Context, tx pgx.Tx, contactID, currencyID string, delta decimal.Decimal, now time.Time) error
	Query(ctx context.Context, contactID string, currencyID *string) ([]domain.Balance, error)
	// RebuildForContact recomputes every balance row for the contact from
	// the live transactions and zeroes rows with no remaining transactions.
	// Deterministic and idempotent.
	RebuildForContact(ctx context.Context, contactID string, now time.Time) error
}

// OutboxRepositoryFacade defines the drain-side operations over the mirror
// outbox. Enqueueing happens through LedgerRepositoryFacade so the intent
// commits atomically with the primary write.
type OutboxRepositoryFacade interface {
	ListPending(ctx context.Context, limit int) ([]domain.MirrorIntent, error)
	MarkDone(ctx context.Context, intentID string, now time.Time) error
	MarkFailed(ctx context.Context, intentID, lastError string, now time.Time) error
	// MarkAbandoned retires an intent whose attempts are exhausted; it
	// leaves the pending pool permanently.
	MarkAbandoned(ctx context.Context, intentID, lastError string, now time.Time) error
}

// CurrencyRepositoryFacade defines persistence operations for Currencies.
type CurrencyRepositoryFacade interface {
	SaveCurrency(ctx context.Context, currency domain.Currency) error
	FindCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error)
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// UserRepositoryFacade defines persistence operations for Users.
type UserRepositoryFacade interface {
	SaveUser(ctx context.Context, user domain.User) error
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// RepositoryProvider aggregates all repository implementations.
type RepositoryProvider struct {
	ContactRepo  ContactRepositoryFacade
	LedgerRepo   LedgerRepositoryFacade
	BalanceRepo  BalanceRepositoryFacade
	OutboxRepo   OutboxRepositoryFacade
	CurrencyRepo CurrencyRepositoryFacade
	UserRepo     UserRepositoryFacade
}
