package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/utils/mapping"
	"github.com/owetrack/owetrack/internal/utils/pagination"
)

// PgxLedgerRepository persists the transaction log. Every write that affects
// a balance performs the balance adjustment in the same database transaction
// as the transaction-row change, so the materialized balance can only drift
// through cross-ledger propagation, never within one ledger.
type PgxLedgerRepository struct {
	BaseRepository
	balanceRepo *PgxBalanceRepository
}

// newPgxLedgerRepository creates a new repository for ledger transactions.
func newPgxLedgerRepository(pool *pgxpool.Pool, balanceRepo *PgxBalanceRepository) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
		balanceRepo:    balanceRepo,
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

const transactionColumns = `transaction_id, contact_id, currency_id, user_id, amount, note, draft_token, mirror_of_transaction_id, deleted_at, created_at, created_by, last_updated_at, last_updated_by`

const insertTransactionQuery = `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10, $11, $12);
`

const enqueueIntentQuery = `
	INSERT INTO mirror_outbox (intent_id, origin_transaction_id, contact_id, user_id, currency_id, amount, note, status, attempts, last_error, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, '', $9);
`

// CreateTransaction inserts the transaction row and, unless it is a draft,
// applies the amount to the owning (contact, currency) balance. A non-nil
// intent is written to the mirror outbox inside the same scope, so the
// durable mirror intent commits or rolls back together with the primary
// write.
func (r *PgxLedgerRepository) CreateTransaction(ctx context.Context, txn domain.Transaction, intent *domain.MirrorIntent) error {
	m := mapping.ToModelTransaction(txn)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	_, err = tx.Exec(ctx, insertTransactionQuery,
		m.TransactionID,
		m.ContactID,
		m.CurrencyID,
		m.UserID,
		m.Amount,
		m.Note,
		m.DraftToken,
		m.MirrorOfTransactionID,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Draft tokens and mirror back-references are unique; a second
			// insert means the work already happened.
			return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, m.TransactionID)
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+m.TransactionID, err)
	}

	// Drafts have zero ledger effect until finalized.
	if m.ContactID != nil && m.DraftToken == nil {
		if err := r.balanceRepo.IncrementInTx(ctx, tx, *m.ContactID, m.CurrencyID, m.Amount, m.CreatedAt); err != nil {
			return err
		}
	}

	if intent != nil {
		if err := r.enqueueIntentInTx(ctx, tx, *intent); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

func (r *PgxLedgerRepository) enqueueIntentInTx(ctx context.Context, tx pgx.Tx, intent domain.MirrorIntent) error {
	m := mapping.ToModelMirrorIntent(intent)
	_, err := tx.Exec(ctx, enqueueIntentQuery,
		m.IntentID,
		m.OriginTransactionID,
		m.ContactID,
		m.UserID,
		m.CurrencyID,
		m.Amount,
		m.Note,
		m.Status,
		m.CreatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to enqueue mirror intent for transaction "+m.OriginTransactionID, err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction by its ID, deleted or not.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	return r.queryOne(ctx, query, transactionID)
}

// FindActiveTransactionForUser loads a live, finalized transaction from
// userID's ledger. Missing, deleted, draft and foreign transactions all map
// to ErrNotFound so existence is not leaked across ledgers.
func (r *PgxLedgerRepository) FindActiveTransactionForUser(ctx context.Context, transactionID, userID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE transaction_id = $1 AND user_id = $2 AND deleted_at IS NULL AND draft_token IS NULL;
	`
	return r.queryOne(ctx, query, transactionID, userID)
}

// FindDraftByToken retrieves an unfinalized draft by its token.
func (r *PgxLedgerRepository) FindDraftByToken(ctx context.Context, draftToken string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE draft_token = $1;`
	return r.queryOne(ctx, query, draftToken)
}

// DeleteDraftByToken hard-deletes an unfinalized draft. This is the only
// hard delete in the ledger; drafts never touched balances so nothing else
// needs adjusting.
func (r *PgxLedgerRepository) DeleteDraftByToken(ctx context.Context, draftToken, userID string) error {
	query := `DELETE FROM transactions WHERE draft_token = $1 AND user_id = $2;`

	cmdTag, err := r.Pool.Exec(ctx, query, draftToken, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to discard draft", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FinalizeDraft attaches the draft to contactID, clears the token and
// applies the stored amount to the (contact, currency) balance, all in one
// database transaction. The UPDATE is guarded on draft_token, so of two
// concurrent finalize calls exactly one wins; the loser gets ErrConflict.
func (r *PgxLedgerRepository) FinalizeDraft(ctx context.Context, draftToken, contactID, updatedByUserID string, now time.Time, intent *domain.MirrorIntent) (*domain.Transaction, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	updateQuery := `
		UPDATE transactions
		SET contact_id = $2, draft_token = NULL, last_updated_at = $3, last_updated_by = $4
		WHERE draft_token = $1
		RETURNING ` + transactionColumns + `;
	`
	m, err := scanTransaction(tx.QueryRow(ctx, updateQuery, draftToken, contactID, now, updatedByUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Token already consumed by a concurrent finalize, or it never
			// existed. The caller distinguishes via its prior lookup.
			return nil, apperrors.ErrConflict
		}
		return nil, apperrors.NewAppError(500, "failed to finalize draft", err)
	}

	if err := r.balanceRepo.IncrementInTx(ctx, tx, contactID, m.CurrencyID, m.Amount, now); err != nil {
		return nil, err
	}

	if intent != nil {
		if err := r.enqueueIntentInTx(ctx, tx, *intent); err != nil {
			return nil, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	txn := mapping.ToDomainTransaction(*m)
	return &txn, nil
}

// CancelTransaction soft-deletes the transaction and reverses its balance
// effect in one database transaction. The UPDATE is guarded on deleted_at,
// so a transaction can only ever be reversed once.
func (r *PgxLedgerRepository) CancelTransaction(ctx context.Context, txn domain.Transaction, updatedByUserID string, now time.Time) error {
	if txn.ContactID == nil {
		return fmt.Errorf("%w: cancel target %s has no contact", apperrors.ErrInvariantViolation, txn.TransactionID)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	deleteQuery := `
		UPDATE transactions
		SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
		WHERE transaction_id = $1 AND deleted_at IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, deleteQuery, txn.TransactionID, now, updatedByUserID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to cancel transaction "+txn.TransactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	if err := r.balanceRepo.IncrementInTx(ctx, tx, *txn.ContactID, txn.CurrencyID, txn.Amount.Neg(), now); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindTransactionByMirrorOrigin returns the live mirror entry recorded for
// originTransactionID, if any.
func (r *PgxLedgerRepository) FindTransactionByMirrorOrigin(ctx context.Context, originTransactionID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE mirror_of_transaction_id = $1 AND deleted_at IS NULL;
	`
	return r.queryOne(ctx, query, originTransactionID)
}

// FindActiveTransactionsByValue returns live, finalized transactions on a
// contact matching (currency, amount) exactly. Used only as a fallback when
// resolving reciprocals for rows that predate the mirror back-reference.
func (r *PgxLedgerRepository) FindActiveTransactionsByValue(ctx context.Context, contactID, currencyID string, amount decimal.Decimal) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE contact_id = $1 AND currency_id = $2 AND amount = $3
		  AND deleted_at IS NULL AND draft_token IS NULL
		ORDER BY created_at;
	`
	rows, err := r.Pool.Query(ctx, query, contactID, currencyID, amount)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions by value for contact "+contactID, err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction row for contact "+contactID, err)
		}
		transactions = append(transactions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction rows for contact "+contactID, err)
	}

	return mapping.ToDomainTransactionSlice(transactions), nil
}

// ListTransactionsByContact retrieves a paginated list of live transactions
// for a contact using token-based pagination.
func (r *PgxLedgerRepository) ListTransactionsByContact(ctx context.Context, contactID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE contact_id = $1 AND deleted_at IS NULL
	`
	orderByClause := `ORDER BY created_at DESC, transaction_id DESC`

	args := []interface{}{contactID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, transaction_id) < ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query transactions for contact "+contactID, err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan transaction row for contact "+contactID, err)
		}
		transactions = append(transactions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating transaction rows for contact "+contactID, err)
	}

	var nextTokenVal *string
	results := transactions
	if len(transactions) > limit {
		last := transactions[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		nextTokenVal = &token
		results = transactions[:limit]
	}

	return mapping.ToDomainTransactionSlice(results), nextTokenVal, nil
}

func (r *PgxLedgerRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*domain.Transaction, error) {
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to query transaction", err)
	}

	txn := mapping.ToDomainTransaction(*m)
	return &txn, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.ContactID,
		&m.CurrencyID,
		&m.UserID,
		&m.Amount,
		&m.Note,
		&m.DraftToken,
		&m.MirrorOfTransactionID,
		&m.DeletedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
