package services_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
)

// --- Mock ContactRepository ---
type MockContactRepository struct {
	mock.Mock
}

var _ portsrepo.ContactRepositoryFacade = (*MockContactRepository)(nil)

func (m *MockContactRepository) SaveContact(ctx context.Context, contact domain.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) FindContactByID(ctx context.Context, contactID string) (*domain.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockContactRepository) ListContactsByOwner(ctx context.Context, ownerUserID string, limit int, nextToken *string) ([]domain.Contact, *string, error) {
	args := m.Called(ctx, ownerUserID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Contact), returnedNextToken, args.Error(2)
}

func (m *MockContactRepository) UpdateContact(ctx context.Context, contact domain.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) FindReciprocal(ctx context.Context, ownerUserID, refUserID string) (*domain.Contact, error) {
	args := m.Called(ctx, ownerUserID, refUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockContactRepository) GetOrCreateReciprocal(ctx context.Context, ownerUserID, refUserID, name string, now time.Time) (*domain.Contact, error) {
	args := m.Called(ctx, ownerUserID, refUserID, name, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

// --- Mock LedgerRepository ---
type MockLedgerRepository struct {
	mock.Mock
}

var _ portsrepo.LedgerRepositoryFacade = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) CreateTransaction(ctx context.Context, txn domain.Transaction, intent *domain.MirrorIntent) error {
	args := m.Called(ctx, txn, intent)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindActiveTransactionForUser(ctx context.Context, transactionID, userID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindDraftByToken(ctx context.Context, draftToken string) (*domain.Transaction, error) {
	args := m.Called(ctx, draftToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) DeleteDraftByToken(ctx context.Context, draftToken, userID string) error {
	args := m.Called(ctx, draftToken, userID)
	return args.Error(0)
}

func (m *MockLedgerRepository) FinalizeDraft(ctx context.Context, draftToken, contactID, updatedByUserID string, now time.Time, intent *domain.MirrorIntent) (*domain.Transaction, error) {
	args := m.Called(ctx, draftToken, contactID, updatedByUserID, now, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) CancelTransaction(ctx context.Context, txn domain.Transaction, updatedByUserID string, now time.Time) error {
	args := m.Called(ctx, txn, updatedByUserID, now)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindTransactionByMirrorOrigin(ctx context.Context, originTransactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, originTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindActiveTransactionsByValue(ctx context.Context, contactID, currencyID string, amount decimal.Decimal) ([]domain.Transaction, error) {
	args := m.Called(ctx, contactID, currencyID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListTransactionsByContact(ctx context.Context, contactID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, contactID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Transaction), returnedNextToken, args.Error(2)
}

// --- Mock BalanceRepository ---
type MockBalanceRepository struct {
	mock.Mock
}

var _ portsrepo.BalanceRepositoryFacade = (*MockBalanceRepository)(nil)

func (m *MockBalanceRepository) GetOrCreate(ctx context.Context, contactID, currencyID string, now time.Time) (*domain.Balance, error) {
	args := m.Called(ctx, contactID, currencyID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Increment(ctx context.Context, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, contactID, currencyID, delta, now)
	return args.Error(0)
}

func (m *MockBalanceRepository) IncrementInTx(ctx context.Context, tx pgx.Tx, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, tx, contactID, currencyID, delta, now)
	return args.Error(0)
}

func (m *MockBalanceRepository) Query(ctx context.Context, contactID string, currencyID *string) ([]domain.Balance, error) {
	args := m.Called(ctx, contactID, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Balance), args.Error(1)
}

func (m *MockBalanceRepository) RebuildForContact(ctx context.Context, contactID string, now time.Time) error {
	args := m.Called(ctx, contactID, now)
	return args.Error(0)
}

// --- Mock OutboxRepository ---
type MockOutboxRepository struct {
	mock.Mock
}

var _ portsrepo.OutboxRepositoryFacade = (*MockOutboxRepository)(nil)

func (m *MockOutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.MirrorIntent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MirrorIntent), args.Error(1)
}

func (m *MockOutboxRepository) MarkDone(ctx context.Context, intentID string, now time.Time) error {
	args := m.Called(ctx, intentID, now)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, intentID, lastError string, now time.Time) error {
	args := m.Called(ctx, intentID, lastError, now)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkAbandoned(ctx context.Context, intentID, lastError string, now time.Time) error {
	args := m.Called(ctx, intentID, lastError, now)
	return args.Error(0)
}

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

var _ portsrepo.UserRepositoryFacade = (*MockUserRepository)(nil)

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
