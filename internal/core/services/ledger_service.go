package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

var (
	ErrZeroAmount      = errors.New("transaction amount must be nonzero")
	ErrDraftHasContact = errors.New("a draft transaction cannot carry a contact")
	ErrMissingContact  = errors.New("a non-draft transaction requires a contact")
)

// ledgerService is the ledger engine. It orchestrates transaction creation,
// the draft lifecycle, cancellation-with-reversal and balance mutation, and
// owns the mirroring protocol between linked contacts.
type ledgerService struct {
	ledgerRepo  portsrepo.LedgerRepositoryFacade
	contactRepo portsrepo.ContactRepositoryFacade
	balanceRepo portsrepo.BalanceRepositoryFacade
	outboxRepo  portsrepo.OutboxRepositoryFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	contactRepo portsrepo.ContactRepositoryFacade,
	balanceRepo portsrepo.BalanceRepositoryFacade,
	outboxRepo portsrepo.OutboxRepositoryFacade,
) portssvc.LedgerSvcFacade {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		contactRepo: contactRepo,
		balanceRepo: balanceRepo,
		outboxRepo:  outboxRepo,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// recordParams carries one ledger write through the engine. isInternalMirror
// marks a write performed on behalf of another ledger's transaction; such a
// write never enqueues a mirror of its own, which bounds propagation to
// exactly one hop. The flag stays explicit rather than being inferred from
// call depth.
type recordParams struct {
	contactID        *string
	currencyID       string
	userID           string
	amount           decimal.Decimal
	note             string
	draftToken       *string
	isInternalMirror bool
	mirrorOf         *string
}

// Topup records a positive amount: the counterparty owes the recording user
// more.
func (s *ledgerService) Topup(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error) {
	return s.record(ctx, recordParams{
		contactID:  &req.ContactID,
		currencyID: req.CurrencyID,
		userID:     userID,
		amount:     req.Amount.Abs(),
		note:       req.Note,
	})
}

// Withdraw records a negative amount: the recording user gave or owes.
func (s *ledgerService) Withdraw(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error) {
	return s.record(ctx, recordParams{
		contactID:  &req.ContactID,
		currencyID: req.CurrencyID,
		userID:     userID,
		amount:     req.Amount.Abs().Neg(),
		note:       req.Note,
	})
}

// record is the single entry point for ledger writes: direct records, drafts
// and mirror application all funnel through it.
func (s *ledgerService) record(ctx context.Context, p recordParams) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if p.amount.IsZero() {
		return nil, errors.Join(apperrors.ErrValidation, ErrZeroAmount)
	}
	if p.draftToken != nil && p.contactID != nil {
		return nil, errors.Join(apperrors.ErrValidation, ErrDraftHasContact)
	}
	if p.draftToken == nil && p.contactID == nil {
		return nil, errors.Join(apperrors.ErrValidation, ErrMissingContact)
	}

	var contact *domain.Contact
	if p.contactID != nil {
		var err error
		contact, err = s.resolveContact(ctx, *p.contactID, p.userID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID:         uuid.NewString(),
		ContactID:             p.contactID,
		CurrencyID:            p.currencyID,
		UserID:                p.userID,
		Amount:                p.amount,
		Note:                  p.note,
		DraftToken:            p.draftToken,
		MirrorOfTransactionID: p.mirrorOf,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     p.userID,
			LastUpdatedAt: now,
			LastUpdatedBy: p.userID,
		},
	}

	// For a linked contact, the durable mirror intent is prepared up front so
	// the repository can commit it in the same atomic scope as the primary
	// write. Mirror application itself never re-enters here with a contact it
	// should mirror again.
	var intent *domain.MirrorIntent
	if contact != nil && contact.IsLinked() && !p.isInternalMirror && p.draftToken == nil {
		var err error
		intent, err = s.prepareMirrorIntent(ctx, contact, &txn, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.ledgerRepo.CreateTransaction(ctx, txn, intent); err != nil {
		logger.Error("Failed to create transaction", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID))
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	logger.Info("Transaction recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.Bool("draft", txn.IsDraft()),
		slog.Bool("mirrored", intent != nil),
	)

	// The mirror lives in its own atomic scope. The primary write has
	// committed; a failure here leaves the intent pending for the retry
	// worker instead of failing the caller.
	if intent != nil {
		s.drainIntent(ctx, *intent)
	}

	return &txn, nil
}

// resolveContact loads the contact and scopes it to the acting user.
// Foreign contacts map to ErrNotFound so existence is not leaked.
func (s *ledgerService) resolveContact(ctx context.Context, contactID, userID string) (*domain.Contact, error) {
	contact, err := s.contactRepo.FindContactByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve contact %s: %w", contactID, err)
	}
	if contact.OwnerUserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return contact, nil
}

// prepareMirrorIntent gets or creates the reciprocal contact for a linked
// pair and builds the negated counter-entry intent. The reciprocal contact
// is owned by the linked user and references the original owner back; it is
// created on first use and never deleted by ledger operations.
func (s *ledgerService) prepareMirrorIntent(ctx context.Context, contact *domain.Contact, txn *domain.Transaction, now time.Time) (*domain.MirrorIntent, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	refUserID := *contact.RefUserID
	if refUserID == contact.OwnerUserID {
		return nil, fmt.Errorf("%w: contact %s", errors.Join(apperrors.ErrInvariantViolation, ErrSelfContact), contact.ContactID)
	}

	reciprocal, err := s.contactRepo.GetOrCreateReciprocal(ctx, refUserID, contact.OwnerUserID, contact.Name, now)
	if err != nil {
		logger.Error("Failed to get or create reciprocal contact", slog.String("error", err.Error()), slog.String("contact_id", contact.ContactID))
		return nil, fmt.Errorf("failed to resolve reciprocal contact: %w", err)
	}

	return &domain.MirrorIntent{
		IntentID:            uuid.NewString(),
		OriginTransactionID: txn.TransactionID,
		ContactID:           reciprocal.ContactID,
		UserID:              refUserID,
		CurrencyID:          txn.CurrencyID,
		Amount:              txn.Amount.Neg(),
		Note:                txn.Note,
		Status:              domain.MirrorPending,
		CreatedAt:           now,
	}, nil
}

// ApplyMirrorIntent performs the one-hop internal record for a queued
// intent. Replaying an already-applied intent is a no-op thanks to the
// unique mirror back-reference. An intent whose origin has since been
// cancelled or removed collapses to a no-op as well, so a deferred retry
// never grows a live mirror for a dead origin.
func (s *ledgerService) ApplyMirrorIntent(ctx context.Context, intent domain.MirrorIntent) error {
	origin, err := s.ledgerRepo.FindTransactionByID(ctx, intent.OriginTransactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if origin.IsCancelled() {
		middleware.GetLoggerFromCtx(ctx).Info("Mirror intent dropped; origin cancelled",
			slog.String("intent_id", intent.IntentID),
			slog.String("origin_transaction_id", intent.OriginTransactionID),
		)
		return nil
	}

	_, err = s.record(ctx, recordParams{
		contactID:        &intent.ContactID,
		currencyID:       intent.CurrencyID,
		userID:           intent.UserID,
		amount:           intent.Amount,
		note:             intent.Note,
		isInternalMirror: true,
		mirrorOf:         &intent.OriginTransactionID,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Mirror already recorded by an earlier attempt.
			return nil
		}
		return err
	}
	return nil
}

// drainIntent applies one intent inline and marks it done. Failures are
// logged and left for the retry worker; the caller's write already committed.
func (s *ledgerService) drainIntent(ctx context.Context, intent domain.MirrorIntent) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.ApplyMirrorIntent(ctx, intent); err != nil {
		logger.Warn("Mirror propagation deferred to retry worker",
			slog.String("intent_id", intent.IntentID),
			slog.String("origin_transaction_id", intent.OriginTransactionID),
			slog.String("error", err.Error()),
		)
		if markErr := s.outboxRepo.MarkFailed(ctx, intent.IntentID, err.Error(), time.Now().UTC()); markErr != nil {
			logger.Error("Failed to record mirror attempt", slog.String("intent_id", intent.IntentID), slog.String("error", markErr.Error()))
		}
		return
	}

	if err := s.outboxRepo.MarkDone(ctx, intent.IntentID, time.Now().UTC()); err != nil {
		// The mirror applied; the worker will rediscover the intent and the
		// replay guard will collapse it to a MarkDone.
		logger.Warn("Failed to mark mirror intent done", slog.String("intent_id", intent.IntentID), slog.String("error", err.Error()))
	}
}

// CreateDraft records a transaction before its counterparty is known. A
// draft has zero ledger effect until finalized: no balance row is touched
// and no mirror is queued.
func (s *ledgerService) CreateDraft(ctx context.Context, userID string, req dto.CreateDraftRequest) (*domain.Transaction, error) {
	token := req.DraftToken
	if token == "" {
		token = uuid.NewString()
	}

	return s.record(ctx, recordParams{
		currencyID: req.CurrencyID,
		userID:     userID,
		amount:     req.Amount,
		note:       req.Note,
		draftToken: &token,
	})
}

// GetDraft looks up an unfinalized draft by token, scoped to its owner.
func (s *ledgerService) GetDraft(ctx context.Context, userID, draftToken string) (*domain.Transaction, error) {
	draft, err := s.ledgerRepo.FindDraftByToken(ctx, draftToken)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return draft, nil
}

// DiscardDraft hard-deletes an unfinalized draft. Drafts never touched
// balances, so there is nothing to reverse.
func (s *ledgerService) DiscardDraft(ctx context.Context, userID, draftToken string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.ledgerRepo.DeleteDraftByToken(ctx, draftToken, userID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to discard draft", slog.String("error", err.Error()))
		}
		return err
	}

	logger.Info("Draft discarded")
	return nil
}

// FinalizeDraft attaches the draft to a contact and applies the same balance
// and mirroring effects a direct record would have had, exactly once. The
// token is cleared by the transition, so reusing a consumed token surfaces
// as ErrNotFound; only a concurrent finalize losing the race sees
// ErrConflict.
func (s *ledgerService) FinalizeDraft(ctx context.Context, userID, draftToken, contactID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	draft, err := s.ledgerRepo.FindDraftByToken(ctx, draftToken)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	contact, err := s.resolveContact(ctx, contactID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var intent *domain.MirrorIntent
	if contact.IsLinked() {
		draftCopy := *draft
		intent, err = s.prepareMirrorIntent(ctx, contact, &draftCopy, now)
		if err != nil {
			return nil, err
		}
	}

	// The guarded update clears the token; a concurrent finalize losing the
	// race surfaces as ErrConflict here without having applied any effect.
	txn, err := s.ledgerRepo.FinalizeDraft(ctx, draftToken, contactID, userID, now, intent)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Draft already finalized", slog.String("transaction_id", draft.TransactionID))
			return nil, apperrors.ErrConflict
		}
		logger.Error("Failed to finalize draft", slog.String("error", err.Error()), slog.String("transaction_id", draft.TransactionID))
		return nil, fmt.Errorf("failed to finalize draft: %w", err)
	}

	logger.Info("Draft finalized",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("contact_id", contactID),
		slog.Bool("mirrored", intent != nil),
	)

	if intent != nil {
		s.drainIntent(ctx, *intent)
	}

	return txn, nil
}

// Cancel soft-deletes the transaction and reverses its balance effect. For a
// linked contact it then locates the still-active reciprocal entry and
// cancels it symmetrically in the counterpart ledger's own atomic scope. If
// the mirror-side cancellation fails after the primary committed, the
// ledgers diverge until repaired by a rebuild; this is surfaced in the logs,
// never hidden.
func (s *ledgerService) Cancel(ctx context.Context, userID, transactionID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.ledgerRepo.FindActiveTransactionForUser(ctx, transactionID, userID)
	if err != nil {
		return err
	}
	if txn.ContactID == nil {
		logger.Warn("Cancel target has no contact; nothing to reverse", slog.String("transaction_id", transactionID))
		return nil
	}

	now := time.Now().UTC()
	if err := s.ledgerRepo.CancelTransaction(ctx, *txn, userID, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a race with a concurrent cancel.
			return apperrors.ErrNotFound
		}
		logger.Error("Failed to cancel transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return fmt.Errorf("failed to cancel transaction: %w", err)
	}

	logger.Info("Transaction cancelled", slog.String("transaction_id", transactionID))

	contact, err := s.contactRepo.FindContactByID(ctx, *txn.ContactID)
	if err != nil {
		logger.Error("Failed to load contact after cancellation", slog.String("error", err.Error()), slog.String("contact_id", *txn.ContactID))
		return nil
	}
	if !contact.IsLinked() {
		return nil
	}

	reciprocalTxn, err := s.resolveReciprocalTransaction(ctx, txn, contact)
	if err != nil || reciprocalTxn == nil {
		return nil
	}

	if err := s.ledgerRepo.CancelTransaction(ctx, *reciprocalTxn, userID, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		logger.Error("Mirror-side cancellation failed; ledgers diverge until rebuilt",
			slog.String("transaction_id", transactionID),
			slog.String("reciprocal_transaction_id", reciprocalTxn.TransactionID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	logger.Info("Reciprocal transaction cancelled",
		slog.String("transaction_id", transactionID),
		slog.String("reciprocal_transaction_id", reciprocalTxn.TransactionID),
	)
	return nil
}

// resolveReciprocalTransaction finds the still-active counter-entry for a
// cancelled transaction. The mirror back-reference resolves it exactly, in
// either direction; value matching remains as a fallback for rows predating
// the back-reference, and an ambiguous fallback match leaves the mirror
// untouched.
func (s *ledgerService) resolveReciprocalTransaction(ctx context.Context, txn *domain.Transaction, contact *domain.Contact) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// The cancelled entry is itself a mirror: its origin is the reciprocal.
	if txn.MirrorOfTransactionID != nil {
		origin, err := s.ledgerRepo.FindTransactionByID(ctx, *txn.MirrorOfTransactionID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if origin.IsCancelled() {
			return nil, nil
		}
		return origin, nil
	}

	// Forward direction: the mirror references the cancelled entry.
	mirror, err := s.ledgerRepo.FindTransactionByMirrorOrigin(ctx, txn.TransactionID)
	if err == nil {
		return mirror, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// Fallback: locate the reciprocal contact and match by negated value.
	reciprocalContact, err := s.contactRepo.FindReciprocal(ctx, *contact.RefUserID, contact.OwnerUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("No reciprocal contact found for linked cancellation", slog.String("contact_id", contact.ContactID))
			return nil, nil
		}
		return nil, err
	}

	candidates, err := s.ledgerRepo.FindActiveTransactionsByValue(ctx, reciprocalContact.ContactID, txn.CurrencyID, txn.Amount.Neg())
	if err != nil {
		return nil, err
	}
	switch len(candidates) {
	case 0:
		logger.Warn("No reciprocal transaction found; mirror side left untouched", slog.String("transaction_id", txn.TransactionID))
		return nil, nil
	case 1:
		return &candidates[0], nil
	default:
		logger.Error("Ambiguous reciprocal match; mirror side left untouched",
			slog.String("transaction_id", txn.TransactionID),
			slog.Int("candidates", len(candidates)),
			slog.String("error", apperrors.ErrInvariantViolation.Error()),
		)
		return nil, nil
	}
}

// ListTransactions retrieves a paginated list of live transactions for one
// of the user's contacts.
func (s *ledgerService) ListTransactions(ctx context.Context, userID, contactID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.resolveContact(ctx, contactID, userID); err != nil {
		return nil, err
	}

	transactions, nextToken, err := s.ledgerRepo.ListTransactionsByContact(ctx, contactID, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	return &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(transactions),
		NextToken:    nextToken,
	}, nil
}

// QueryBalances returns the materialized balances for one of the user's
// contacts, optionally narrowed to a single currency.
func (s *ledgerService) QueryBalances(ctx context.Context, userID, contactID string, currencyID *string) ([]domain.Balance, error) {
	if _, err := s.resolveContact(ctx, contactID, userID); err != nil {
		return nil, err
	}
	return s.balanceRepo.Query(ctx, contactID, currencyID)
}
