package services

import (
	"context"

	"github.com/owetrack/owetrack/internal/core/domain"
	"github.com/owetrack/owetrack/internal/dto"
)

// LedgerSvcFacade is the ledger engine: transaction creation, the draft
// lifecycle, cancellation-with-reversal and the mirroring protocol between
// linked contacts.
type LedgerSvcFacade interface {
	// Topup records a positive amount against the contact: the counterparty
	// owes the recording user more.
	Topup(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error)
	// Withdraw records a negative amount against the contact: the recording
	// user gave or owes.
	Withdraw(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error)
	// Cancel soft-deletes the transaction, reverses its balance effect and,
	// for linked contacts, cancels the reciprocal mirror entry symmetrically.
	Cancel(ctx context.Context, userID, transactionID string) error

	CreateDraft(ctx context.Context, userID string, req dto.CreateDraftRequest) (*domain.Transaction, error)
	GetDraft(ctx context.Context, userID, draftToken string) (*domain.Transaction, error)
	DiscardDraft(ctx context.Context, userID, draftToken string) error
	FinalizeDraft(ctx context.Context, userID, draftToken, contactID string) (*domain.Transaction, error)

	ListTransactions(ctx context.Context, userID, contactID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
	QueryBalances(ctx context.Context, userID, contactID string, currencyID *string) ([]domain.Balance, error)

	// ApplyMirrorIntent performs the one-hop internal mirror record for a
	// queued intent. Idempotent: replaying an applied intent is a no-op.
	ApplyMirrorIntent(ctx context.Context, intent domain.MirrorIntent) error
}

// MirrorSvcFacade drains the mirror outbox.
type MirrorSvcFacade interface {
	// DrainOnce processes up to one batch of pending intents and reports how
	// many were applied.
	DrainOnce(ctx context.Context) (int, error)
	// Run drains on an interval until ctx is cancelled.
	Run(ctx context.Context)
}

// RecalcSvcFacade rebuilds materialized balances from the transaction log.
type RecalcSvcFacade interface {
	Rebuild(ctx context.Context, userID, contactID string) ([]domain.Balance, error)
}

// ContactSvcFacade manages contacts.
type ContactSvcFacade interface {
	CreateContact(ctx context.Context, userID string, req dto.CreateContactRequest) (*domain.Contact, error)
	GetContactByID(ctx context.Context, userID, contactID string) (*domain.Contact, error)
	ListContacts(ctx context.Context, userID string, params dto.ListContactsParams) (*dto.ListContactsResponse, error)
	UpdateContact(ctx context.Context, userID, contactID string, req dto.UpdateContactRequest) (*domain.Contact, error)
}

// CurrencySvcFacade manages global currency reference data.
type CurrencySvcFacade interface {
	CreateCurrency(ctx context.Context, userID string, req dto.CreateCurrencyRequest) (*domain.Currency, error)
	GetCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error)
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// UserSvcFacade manages users.
type UserSvcFacade interface {
	RegisterUser(ctx context.Context, req dto.RegisterUserRequest) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	// Authenticate verifies credentials and returns the user on success.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthSvcFacade issues access tokens.
type AuthSvcFacade interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

// ServiceContainer aggregates all service implementations for route wiring.
type ServiceContainer struct {
	Ledger   LedgerSvcFacade
	Mirror   MirrorSvcFacade
	Recalc   RecalcSvcFacade
	Contact  ContactSvcFacade
	Currency CurrencySvcFacade
	User     UserSvcFacade
	Auth     AuthSvcFacade
}
