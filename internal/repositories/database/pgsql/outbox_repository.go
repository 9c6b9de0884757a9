package pgsql

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/utils/mapping"
)

type PgxOutboxRepository struct {
	BaseRepository
}

// newPgxOutboxRepository creates a new repository for the mirror outbox.
// Enqueueing lives in the ledger repository so an intent commits atomically
// with the primary write; this repository covers the drain side.
func newPgxOutboxRepository(pool *pgxpool.Pool) portsrepo.OutboxRepositoryFacade {
	return &PgxOutboxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.OutboxRepositoryFacade = (*PgxOutboxRepository)(nil)

// ListPending returns up to limit pending intents, oldest first.
func (r *PgxOutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.MirrorIntent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT intent_id, origin_transaction_id, contact_id, user_id, currency_id, amount, note, status, attempts, last_error, created_at, processed_at
		FROM mirror_outbox
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query pending mirror intents", err)
	}
	defer rows.Close()

	intents := []domain.MirrorIntent{}
	for rows.Next() {
		var m models.MirrorIntent
		if err := rows.Scan(
			&m.IntentID,
			&m.OriginTransactionID,
			&m.ContactID,
			&m.UserID,
			&m.CurrencyID,
			&m.Amount,
			&m.Note,
			&m.Status,
			&m.Attempts,
			&m.LastError,
			&m.CreatedAt,
			&m.ProcessedAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan mirror intent row", err)
		}
		intents = append(intents, mapping.ToDomainMirrorIntent(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating mirror intent rows", err)
	}

	return intents, nil
}

// MarkDone records a successfully applied intent.
func (r *PgxOutboxRepository) MarkDone(ctx context.Context, intentID string, now time.Time) error {
	query := `
		UPDATE mirror_outbox
		SET status = 'DONE', processed_at = $2, attempts = attempts + 1, last_error = ''
		WHERE intent_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, intentID, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark mirror intent "+intentID+" done", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("mirror intent " + intentID + " not found")
	}
	return nil
}

// MarkAbandoned retires an intent after its attempts are exhausted. The row
// leaves the pending pool and keeps its last error for inspection.
func (r *PgxOutboxRepository) MarkAbandoned(ctx context.Context, intentID, lastError string, now time.Time) error {
	query := `
		UPDATE mirror_outbox
		SET status = 'FAILED', processed_at = $3, attempts = attempts + 1, last_error = $2
		WHERE intent_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, intentID, lastError, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark mirror intent "+intentID+" abandoned", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("mirror intent " + intentID + " not found")
	}
	return nil
}

// MarkFailed records a failed attempt; the intent stays pending for retry.
func (r *PgxOutboxRepository) MarkFailed(ctx context.Context, intentID, lastError string, now time.Time) error {
	query := `
		UPDATE mirror_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE intent_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, intentID, lastError)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark mirror intent "+intentID+" failed", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("mirror intent " + intentID + " not found")
	}
	return nil
}
