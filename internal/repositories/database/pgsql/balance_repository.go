package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/utils/mapping"
)

type PgxBalanceRepository struct {
	BaseRepository
}

// newPgxBalanceRepository creates a new repository for materialized balances.
func newPgxBalanceRepository(pool *pgxpool.Pool) *PgxBalanceRepository {
	return &PgxBalanceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BalanceRepositoryFacade = (*PgxBalanceRepository)(nil)

// GetOrCreate returns the balance row for (contactID, currencyID), inserting
// a zero row on first use. The insert-then-select sequence is race-safe: a
// concurrent creator makes the insert a no-op.
func (r *PgxBalanceRepository) GetOrCreate(ctx context.Context, contactID, currencyID string, now time.Time) (*domain.Balance, error) {
	insertQuery := `
		INSERT INTO balances (contact_id, currency_id, amount, created_at, last_updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (contact_id, currency_id) DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, insertQuery, contactID, currencyID, now); err != nil {
		return nil, apperrors.NewAppError(500, "failed to initialize balance for contact "+contactID, err)
	}

	return r.find(ctx, contactID, currencyID)
}

// Increment applies an atomic delta to the balance, creating the row at the
// delta value if it does not exist yet. The add happens inside a single
// statement, so concurrent increments never lose updates.
func (r *PgxBalanceRepository) Increment(ctx context.Context, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	_, err := r.Pool.Exec(ctx, incrementBalanceQuery, contactID, currencyID, delta, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to increment balance for contact "+contactID, err)
	}
	return nil
}

// IncrementInTx is Increment executed within a caller-owned transaction,
// used by the ledger repository to keep transaction insert and balance
// adjustment in one atomic scope.
func (r *PgxBalanceRepository) IncrementInTx(ctx context.Context, tx pgx.Tx, contactID, currencyID string, delta decimal.Decimal, now time.Time) error {
	_, err := tx.Exec(ctx, incrementBalanceQuery, contactID, currencyID, delta, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to increment balance for contact "+contactID, err)
	}
	return nil
}

// incrementBalanceQuery applies an update-by-delta at the storage layer.
const incrementBalanceQuery = `
	INSERT INTO balances (contact_id, currency_id, amount, created_at, last_updated_at)
	VALUES ($1, $2, $3, $4, $4)
	ON CONFLICT (contact_id, currency_id)
	DO UPDATE SET amount = balances.amount + EXCLUDED.amount, last_updated_at = EXCLUDED.last_updated_at;
`

// Query returns the balances for a contact, optionally narrowed to one
// currency.
func (r *PgxBalanceRepository) Query(ctx context.Context, contactID string, currencyID *string) ([]domain.Balance, error) {
	query := `
		SELECT contact_id, currency_id, amount, created_at, last_updated_at
		FROM balances
		WHERE contact_id = $1
	`
	args := []interface{}{contactID}
	if currencyID != nil {
		query += ` AND currency_id = $2`
		args = append(args, *currencyID)
	}
	query += ` ORDER BY currency_id;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query balances for contact "+contactID, err)
	}
	defer rows.Close()

	balances := []models.Balance{}
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.ContactID, &b.CurrencyID, &b.Amount, &b.CreatedAt, &b.LastUpdatedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance row for contact "+contactID, err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance rows for contact "+contactID, err)
	}

	return mapping.ToDomainBalanceSlice(balances), nil
}

// RebuildForContact recomputes the balance rows for a contact from the live
// transactions in one database transaction. Currencies with live
// transactions are upserted to their summed amount; existing balance rows
// with no remaining live transactions are set to zero, never deleted. The
// result is independent of transaction log ordering and idempotent.
func (r *PgxBalanceRepository) RebuildForContact(ctx context.Context, contactID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	upsertQuery := `
		INSERT INTO balances (contact_id, currency_id, amount, created_at, last_updated_at)
		SELECT t.contact_id, t.currency_id, SUM(t.amount), $2, $2
		FROM transactions t
		WHERE t.contact_id = $1 AND t.deleted_at IS NULL
		GROUP BY t.contact_id, t.currency_id
		ON CONFLICT (contact_id, currency_id)
		DO UPDATE SET amount = EXCLUDED.amount, last_updated_at = EXCLUDED.last_updated_at;
	`
	if _, err := tx.Exec(ctx, upsertQuery, contactID, now); err != nil {
		return apperrors.NewAppError(500, "failed to rebuild balances for contact "+contactID, err)
	}

	zeroQuery := `
		UPDATE balances b
		SET amount = 0, last_updated_at = $2
		WHERE b.contact_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.contact_id = b.contact_id
			  AND t.currency_id = b.currency_id
			  AND t.deleted_at IS NULL
		  );
	`
	if _, err := tx.Exec(ctx, zeroQuery, contactID, now); err != nil {
		return apperrors.NewAppError(500, "failed to zero stale balances for contact "+contactID, err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxBalanceRepository) find(ctx context.Context, contactID, currencyID string) (*domain.Balance, error) {
	query := `
		SELECT contact_id, currency_id, amount, created_at, last_updated_at
		FROM balances
		WHERE contact_id = $1 AND currency_id = $2;
	`
	var b models.Balance
	err := r.Pool.QueryRow(ctx, query, contactID, currencyID).Scan(
		&b.ContactID, &b.CurrencyID, &b.Amount, &b.CreatedAt, &b.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find balance for contact %s: %w", contactID, err)
	}

	balance := mapping.ToDomainBalance(b)
	return &balance, nil
}
