package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/core/services"
	"github.com/owetrack/owetrack/internal/dto"
)

// fakeStore backs the scenario suite with real balance arithmetic so the
// summed amounts can be asserted end to end, not just the call shapes.
// Semantics follow the pgsql repositories: balance rows accumulate deltas
// for live finalized transactions, cancellation reverses, rebuild recomputes
// from the log.
type fakeStore struct {
	contacts map[string]domain.Contact
	txns     map[string]domain.Transaction
	balances map[string]decimal.Decimal
	intents  map[string]domain.MirrorIntent

	// failMirrorCreates makes the next n mirror writes fail, standing in
	// for a transient mirror-side outage.
	failMirrorCreates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contacts: map[string]domain.Contact{},
		txns:     map[string]domain.Transaction{},
		balances: map[string]decimal.Decimal{},
		intents:  map[string]domain.MirrorIntent{},
	}
}

func balanceKey(contactID, currencyID string) string {
	return contactID + "|" + currencyID
}

func (s *fakeStore) addBalance(contactID, currencyID string, delta decimal.Decimal) {
	key := balanceKey(contactID, currencyID)
	s.balances[key] = s.balances[key].Add(delta)
}

// --- ledger side ---

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) CreateTransaction(ctx context.Context, txn domain.Transaction, intent *domain.MirrorIntent) error {
	if txn.MirrorOfTransactionID != nil {
		if r.store.failMirrorCreates > 0 {
			r.store.failMirrorCreates--
			return apperrors.ErrInternal
		}
		for _, existing := range r.store.txns {
			if existing.MirrorOfTransactionID != nil && *existing.MirrorOfTransactionID == *txn.MirrorOfTransactionID {
				return apperrors.ErrDuplicate
			}
		}
	}
	r.store.txns[txn.TransactionID] = txn
	if !txn.IsDraft() {
		r.store.addBalance(*txn.ContactID, txn.CurrencyID, txn.Amount)
	}
	if intent != nil {
		r.store.intents[intent.IntentID] = *intent
	}
	return nil
}

func (r *fakeLedgerRepo) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, ok := r.store.txns[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (r *fakeLedgerRepo) FindActiveTransactionForUser(ctx context.Context, transactionID, userID string) (*domain.Transaction, error) {
	txn, ok := r.store.txns[transactionID]
	if !ok || txn.UserID != userID || txn.IsCancelled() || txn.IsDraft() {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (r *fakeLedgerRepo) FindDraftByToken(ctx context.Context, draftToken string) (*domain.Transaction, error) {
	for _, txn := range r.store.txns {
		if txn.DraftToken != nil && *txn.DraftToken == draftToken {
			found := txn
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeLedgerRepo) DeleteDraftByToken(ctx context.Context, draftToken, userID string) error {
	for id, txn := range r.store.txns {
		if txn.DraftToken != nil && *txn.DraftToken == draftToken && txn.UserID == userID {
			delete(r.store.txns, id)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeLedgerRepo) FinalizeDraft(ctx context.Context, draftToken, contactID, updatedByUserID string, now time.Time, intent *domain.MirrorIntent) (*domain.Transaction, error) {
	for id, txn := range r.store.txns {
		if txn.DraftToken == nil || *txn.DraftToken != draftToken {
			continue
		}
		txn.DraftToken = nil
		txn.ContactID = &contactID
		txn.LastUpdatedAt = now
		txn.LastUpdatedBy = updatedByUserID
		r.store.txns[id] = txn
		r.store.addBalance(contactID, txn.CurrencyID, txn.Amount)
		if intent != nil {
			r.store.intents[intent.IntentID] = *intent
		}
		return &txn, nil
	}
	return nil, apperrors.ErrConflict
}

func (r *fakeLedgerRepo) CancelTransaction(ctx context.Context, txn domain.Transaction, updatedByUserID string, now time.Time) error {
	stored, ok := r.store.txns[txn.TransactionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.IsCancelled() {
		return apperrors.ErrConflict
	}
	stored.DeletedAt = &now
	stored.LastUpdatedAt = now
	stored.LastUpdatedBy = updatedByUserID
	r.store.txns[stored.TransactionID] = stored
	r.store.addBalance(*stored.ContactID, stored.CurrencyID, stored.Amount.Neg())
	return nil
}

func (r *fakeLedgerRepo) FindTransactionByMirrorOrigin(ctx context.Context, originTransactionID string) (*domain.Transaction, error) {
	for _, txn := range r.store.txns {
		if txn.MirrorOfTransactionID != nil && *txn.MirrorOfTransactionID == originTransactionID && !txn.IsCancelled() {
			found := txn
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeLedgerRepo) FindActiveTransactionsByValue(ctx context.Context, contactID, currencyID string, amount decimal.Decimal) ([]domain.Transaction, error) {
	matches := []domain.Transaction{}
	for _, txn := range r.store.txns {
		if txn.ContactID != nil && *txn.ContactID == contactID && txn.CurrencyID == currencyID &&
			txn.Amount.Equal(amount) && !txn.IsCancelled() && !txn.IsDraft() {
			matches = append(matches, txn)
		}
	}
	return matches, nil
}

func (r *fakeLedgerRepo) ListTransactionsByContact(ctx context.Context, contactID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	txns := []domain.Transaction{}
	for _, txn := range r.store.txns {
		if txn.ContactID != nil && *txn.ContactID == contactID && !txn.IsCancelled() {
			txns = append(txns, txn)
		}
	}
	return txns, nil, nil
}

// --- contact side ---

type fakeContactRepo struct{ store *fakeStore }

func (r *fakeContactRepo) SaveContact(ctx context.Context, contact domain.Contact) error {
	r.store.contacts[contact.ContactID] = contact
	return nil
}

func (r *fakeContactRepo) FindContactByID(ctx context.Context, contactID string) (*domain.Contact, error) {
	contact, ok := r.store.contacts[contactID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &contact, nil
}

func (r *fakeContactRepo) ListContactsByOwner(ctx context.Context, ownerUserID string, limit int, nextToken *string) ([]domain.Contact, *string, error) {
	contacts := []domain.Contact{}
	for _, contact := range r.store.contacts {
		if contact.OwnerUserID == ownerUserID {
			contacts = append(contacts, contact)
		}
	}
	return contacts, nil, nil
}

func (r *fakeContactRepo) UpdateContact(ctx context.Context, contact domain.Contact) error {
	r.store.contacts[contact.ContactID] = contact
	return nil
}

func (r *fakeContactRepo) FindReciprocal(ctx context.Context, ownerUserID, refUserID string) (*domain.Contact, error) {
	for _, contact := range r.store.contacts {
		if contact.OwnerUserID == ownerUserID && contact.RefUserID != nil && *contact.RefUserID == refUserID {
			found := contact
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeContactRepo) GetOrCreateReciprocal(ctx context.Context, ownerUserID, refUserID, name string, now time.Time) (*domain.Contact, error) {
	if existing, err := r.FindReciprocal(ctx, ownerUserID, refUserID); err == nil {
		return existing, nil
	}
	contact := domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        name,
		RefUserID:   &refUserID,
	}
	r.store.contacts[contact.ContactID] = contact
	return &contact, nil
}

// --- balance side ---

type fakeBalanceRepo struct{ store *fakeStore }

func (r *fakeBalanceRepo) GetOrCreate(ctx context.Context, contactID, currencyID string, now time.Time) (*domain.Balance, error) {
	key := balanceKey(contactID, currencyID)
	if _, ok := r.store.balances[key]; !ok {
		r.store.balances[key] = decimal.Zero
	}
	return &domain.Balance{ContactID: contactID, CurrencyID: currencyID, Amount: r.store.balances[key]}, nil
}

func (r *fakeBalanceRepo) Increment(ctx context.Context, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	r.store.addBalance(contactID, currencyID, delta)
	return nil
}

func (r *fakeBalanceRepo) IncrementInTx(ctx context.Context, tx pgx.Tx, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	return r.Increment(ctx, contactID, currencyID, delta, now)
}

func (r *fakeBalanceRepo) Query(ctx context.Context, contactID string, currencyID *string) ([]domain.Balance, error) {
	balances := []domain.Balance{}
	for key, amount := range r.store.balances {
		keyContact, keyCurrency := splitBalanceKey(key)
		if keyContact != contactID {
			continue
		}
		if currencyID != nil && keyCurrency != *currencyID {
			continue
		}
		balances = append(balances, domain.Balance{ContactID: keyContact, CurrencyID: keyCurrency, Amount: amount})
	}
	return balances, nil
}

// RebuildForContact mirrors the SQL rebuild: live finalized transactions
// regroup into fresh sums; rows left without any live transaction are
// zeroed, never deleted.
func (r *fakeBalanceRepo) RebuildForContact(ctx context.Context, contactID string, now time.Time) error {
	sums := map[string]decimal.Decimal{}
	for _, txn := range r.store.txns {
		if txn.ContactID != nil && *txn.ContactID == contactID && !txn.IsCancelled() && !txn.IsDraft() {
			sums[txn.CurrencyID] = sums[txn.CurrencyID].Add(txn.Amount)
		}
	}
	for key := range r.store.balances {
		keyContact, keyCurrency := splitBalanceKey(key)
		if keyContact != contactID {
			continue
		}
		r.store.balances[key] = sums[keyCurrency]
	}
	for currencyID, sum := range sums {
		r.store.balances[balanceKey(contactID, currencyID)] = sum
	}
	return nil
}

func splitBalanceKey(key string) (contactID, currencyID string) {
	contactID, currencyID, _ = strings.Cut(key, "|")
	return contactID, currencyID
}

// --- outbox side ---

type fakeOutboxRepo struct{ store *fakeStore }

func (r *fakeOutboxRepo) ListPending(ctx context.Context, limit int) ([]domain.MirrorIntent, error) {
	pending := []domain.MirrorIntent{}
	for _, intent := range r.store.intents {
		if intent.Status == domain.MirrorPending {
			pending = append(pending, intent)
		}
	}
	return pending, nil
}

func (r *fakeOutboxRepo) MarkDone(ctx context.Context, intentID string, now time.Time) error {
	intent, ok := r.store.intents[intentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	intent.Status = domain.MirrorDone
	intent.ProcessedAt = &now
	r.store.intents[intentID] = intent
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, intentID, lastError string, now time.Time) error {
	intent, ok := r.store.intents[intentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	intent.Attempts++
	intent.LastError = lastError
	r.store.intents[intentID] = intent
	return nil
}

func (r *fakeOutboxRepo) MarkAbandoned(ctx context.Context, intentID, lastError string, now time.Time) error {
	intent, ok := r.store.intents[intentID]
	if !ok {
		return apperrors.ErrNotFound
	}
	intent.Status = domain.MirrorFailed
	intent.LastError = lastError
	intent.ProcessedAt = &now
	r.store.intents[intentID] = intent
	return nil
}

// LedgerScenarioTestSuite walks the engine through full debt scenarios over
// the fake store and asserts the resulting balance amounts.
type LedgerScenarioTestSuite struct {
	suite.Suite
	store      *fakeStore
	ledgerSvc  portssvc.LedgerSvcFacade
	recalcSvc  portssvc.RecalcSvcFacade
	mirrorSvc  portssvc.MirrorSvcFacade
	userA      string
	userB      string
	currencyID string
	contact    domain.Contact // owned by userA, unlinked
	linked     domain.Contact // owned by userA, linked to userB
}

func (suite *LedgerScenarioTestSuite) SetupTest() {
	suite.store = newFakeStore()
	ledgerRepo := &fakeLedgerRepo{store: suite.store}
	contactRepo := &fakeContactRepo{store: suite.store}
	balanceRepo := &fakeBalanceRepo{store: suite.store}
	outboxRepo := &fakeOutboxRepo{store: suite.store}

	suite.ledgerSvc = services.NewLedgerService(ledgerRepo, contactRepo, balanceRepo, outboxRepo)
	suite.recalcSvc = services.NewRecalcService(contactRepo, balanceRepo)
	suite.mirrorSvc = services.NewMirrorService(suite.ledgerSvc, outboxRepo, time.Minute)

	suite.userA = uuid.NewString()
	suite.userB = uuid.NewString()
	suite.currencyID = uuid.NewString()

	suite.contact = domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: suite.userA,
		Name:        "Alice",
	}
	suite.linked = domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: suite.userA,
		Name:        "Bob",
		RefUserID:   &suite.userB,
	}
	suite.store.contacts[suite.contact.ContactID] = suite.contact
	suite.store.contacts[suite.linked.ContactID] = suite.linked
}

func (suite *LedgerScenarioTestSuite) balance(contactID string) decimal.Decimal {
	return suite.store.balances[balanceKey(contactID, suite.currencyID)]
}

// reciprocalOf returns the auto-created counterpart contact in userB's
// ledger for the linked contact.
func (suite *LedgerScenarioTestSuite) reciprocalOf() *domain.Contact {
	for _, contact := range suite.store.contacts {
		if contact.OwnerUserID == suite.userB && contact.RefUserID != nil && *contact.RefUserID == suite.userA {
			found := contact
			return &found
		}
	}
	return nil
}

func (suite *LedgerScenarioTestSuite) TestTopupThenWithdrawAccumulates() {
	ctx := context.Background()

	_, err := suite.ledgerSvc.Topup(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.contact.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)
	suite.True(suite.balance(suite.contact.ContactID).Equal(decimal.NewFromInt(100)))

	_, err = suite.ledgerSvc.Withdraw(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.contact.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(40),
	})
	suite.Require().NoError(err)
	suite.True(suite.balance(suite.contact.ContactID).Equal(decimal.NewFromInt(60)))
}

func (suite *LedgerScenarioTestSuite) TestLinkedTopupMirrorsNegated() {
	ctx := context.Background()

	_, err := suite.ledgerSvc.Topup(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.linked.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)

	reciprocal := suite.reciprocalOf()
	suite.Require().NotNil(reciprocal)
	suite.True(suite.balance(suite.linked.ContactID).Equal(decimal.NewFromInt(100)))
	suite.True(suite.balance(reciprocal.ContactID).Equal(decimal.NewFromInt(-100)))
}

func (suite *LedgerScenarioTestSuite) TestCancelRestoresBothLedgers() {
	ctx := context.Background()

	txn, err := suite.ledgerSvc.Topup(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.linked.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.ledgerSvc.Cancel(ctx, suite.userA, txn.TransactionID))

	reciprocal := suite.reciprocalOf()
	suite.Require().NotNil(reciprocal)
	suite.True(suite.balance(suite.linked.ContactID).IsZero())
	suite.True(suite.balance(reciprocal.ContactID).IsZero())
}

func (suite *LedgerScenarioTestSuite) TestDraftFinalizeMatchesDirectRecord() {
	ctx := context.Background()

	draft, err := suite.ledgerSvc.CreateDraft(ctx, suite.userA, dto.CreateDraftRequest{
		CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(70),
	})
	suite.Require().NoError(err)
	suite.True(suite.balance(suite.contact.ContactID).IsZero())

	txn, err := suite.ledgerSvc.FinalizeDraft(ctx, suite.userA, *draft.DraftToken, suite.contact.ContactID)
	suite.Require().NoError(err)
	suite.Nil(txn.DraftToken)
	suite.True(suite.balance(suite.contact.ContactID).Equal(decimal.NewFromInt(70)))
}

func (suite *LedgerScenarioTestSuite) TestRebuildRepairsDriftAndIsIdempotent() {
	ctx := context.Background()

	_, err := suite.ledgerSvc.Topup(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.contact.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)
	withdrawn, err := suite.ledgerSvc.Withdraw(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.contact.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(40),
	})
	suite.Require().NoError(err)

	// Drift the cache away from the log.
	suite.store.balances[balanceKey(suite.contact.ContactID, suite.currencyID)] = decimal.NewFromInt(999)

	balances, err := suite.recalcSvc.Rebuild(ctx, suite.userA, suite.contact.ContactID)
	suite.Require().NoError(err)
	suite.Require().Len(balances, 1)
	suite.True(balances[0].Amount.Equal(decimal.NewFromInt(60)))

	balances, err = suite.recalcSvc.Rebuild(ctx, suite.userA, suite.contact.ContactID)
	suite.Require().NoError(err)
	suite.Require().Len(balances, 1)
	suite.True(balances[0].Amount.Equal(decimal.NewFromInt(60)))

	// Cancel the remaining entries: the row zeroes, it does not disappear.
	suite.Require().NoError(suite.ledgerSvc.Cancel(ctx, suite.userA, withdrawn.TransactionID))
	balances, err = suite.recalcSvc.Rebuild(ctx, suite.userA, suite.contact.ContactID)
	suite.Require().NoError(err)
	suite.Require().Len(balances, 1)
	suite.True(balances[0].Amount.Equal(decimal.NewFromInt(100)))
}

// A mirror intent stranded by a transient failure must stay inert once its
// origin is cancelled: the retry drain drops it instead of resurrecting a
// counter-entry no rebuild could ever repair.
func (suite *LedgerScenarioTestSuite) TestStaleIntentAfterCancelLeavesLedgersBalanced() {
	ctx := context.Background()

	suite.store.failMirrorCreates = 1
	txn, err := suite.ledgerSvc.Topup(ctx, suite.userA, dto.RecordTransactionRequest{
		ContactID: suite.linked.ContactID, CurrencyID: suite.currencyID, Amount: decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)

	// The mirror never landed, so the cancel finds nothing to reverse on
	// the counterpart side.
	reciprocal := suite.reciprocalOf()
	suite.Require().NotNil(reciprocal)
	suite.True(suite.balance(reciprocal.ContactID).IsZero())
	suite.Require().NoError(suite.ledgerSvc.Cancel(ctx, suite.userA, txn.TransactionID))

	done, err := suite.mirrorSvc.DrainOnce(ctx)
	suite.Require().NoError(err)
	suite.Equal(1, done)

	suite.True(suite.balance(suite.linked.ContactID).IsZero())
	suite.True(suite.balance(reciprocal.ContactID).IsZero())
	_, err = suite.ledgerSvc.ListTransactions(ctx, suite.userB, reciprocal.ContactID, dto.ListTransactionsParams{})
	suite.Require().NoError(err)
	for _, stored := range suite.store.txns {
		if stored.MirrorOfTransactionID != nil {
			suite.Fail("no mirror entry should exist for a cancelled origin")
		}
	}
}

func TestLedgerScenarioTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerScenarioTestSuite))
}
