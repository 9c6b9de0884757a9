package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/utils/mapping"
)

type PgxCurrencyRepository struct {
	BaseRepository
}

// newPgxCurrencyRepository creates a new repository for currency data.
func newPgxCurrencyRepository(pool *pgxpool.Pool) portsrepo.CurrencyRepositoryFacade {
	return &PgxCurrencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CurrencyRepositoryFacade = (*PgxCurrencyRepository)(nil)

// SaveCurrency inserts a new currency.
func (r *PgxCurrencyRepository) SaveCurrency(ctx context.Context, currency domain.Currency) error {
	m := mapping.ToModelCurrency(currency)

	query := `
		INSERT INTO currencies (currency_id, name, symbol, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.CurrencyID, m.Name, m.Symbol,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: currency %s already exists", apperrors.ErrDuplicate, m.Name)
		}
		return fmt.Errorf("failed to save currency %s: %w", m.CurrencyID, err)
	}
	return nil
}

// FindCurrencyByID retrieves a currency by its ID.
func (r *PgxCurrencyRepository) FindCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error) {
	query := `
		SELECT currency_id, name, symbol, created_at, created_by, last_updated_at, last_updated_by
		FROM currencies
		WHERE currency_id = $1;
	`
	var m models.Currency
	err := r.Pool.QueryRow(ctx, query, currencyID).Scan(
		&m.CurrencyID, &m.Name, &m.Symbol,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find currency by ID %s: %w", currencyID, err)
	}

	currency := mapping.ToDomainCurrency(m)
	return &currency, nil
}

// ListCurrencies returns all currencies.
func (r *PgxCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	query := `
		SELECT currency_id, name, symbol, created_at, created_by, last_updated_at, last_updated_by
		FROM currencies
		ORDER BY name;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query currencies", err)
	}
	defer rows.Close()

	currencies := []domain.Currency{}
	for rows.Next() {
		var m models.Currency
		if err := rows.Scan(
			&m.CurrencyID, &m.Name, &m.Symbol,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan currency row", err)
		}
		currencies = append(currencies, mapping.ToDomainCurrency(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating currency rows", err)
	}

	return currencies, nil
}
