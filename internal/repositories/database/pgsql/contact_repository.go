package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/utils/mapping"
	"github.com/owetrack/owetrack/internal/utils/pagination"
)

type PgxContactRepository struct {
	BaseRepository
}

// newPgxContactRepository creates a new repository for contact data.
func newPgxContactRepository(pool *pgxpool.Pool) *PgxContactRepository {
	return &PgxContactRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ContactRepositoryFacade = (*PgxContactRepository)(nil)

const contactColumns = `contact_id, owner_user_id, name, ref_user_id, created_at, created_by, last_updated_at, last_updated_by`

// SaveContact inserts a new contact.
func (r *PgxContactRepository) SaveContact(ctx context.Context, contact domain.Contact) error {
	m := mapping.ToModelContact(contact)

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.ContactID,
		m.OwnerUserID,
		m.Name,
		m.RefUserID,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: contact already exists for this counterparty", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save contact %s: %w", m.ContactID, err)
	}
	return nil
}

// FindContactByID retrieves a contact by its ID.
func (r *PgxContactRepository) FindContactByID(ctx context.Context, contactID string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE contact_id = $1;`

	m, err := r.scanOne(r.Pool.QueryRow(ctx, query, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact by ID %s: %w", contactID, err)
	}

	contact := mapping.ToDomainContact(*m)
	return &contact, nil
}

// ListContactsByOwner retrieves a paginated list of a user's contacts using
// token-based pagination ordered by creation time.
func (r *PgxContactRepository) ListContactsByOwner(ctx context.Context, ownerUserID string, limit int, nextToken *string) ([]domain.Contact, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_user_id = $1`
	orderByClause := `ORDER BY created_at DESC, contact_id DESC`

	args := []interface{}{ownerUserID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, contact_id) < ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query contacts for user "+ownerUserID, err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var m models.Contact
		if err := rows.Scan(
			&m.ContactID, &m.OwnerUserID, &m.Name, &m.RefUserID,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		); err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan contact row for user "+ownerUserID, err)
		}
		contacts = append(contacts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating contact rows for user "+ownerUserID, err)
	}

	var nextTokenVal *string
	results := contacts
	if len(contacts) > limit {
		last := contacts[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.ContactID)
		nextTokenVal = &token
		results = contacts[:limit]
	}

	domainContacts := make([]domain.Contact, len(results))
	for i, m := range results {
		domainContacts[i] = mapping.ToDomainContact(m)
	}
	return domainContacts, nextTokenVal, nil
}

// UpdateContact updates mutable contact fields.
func (r *PgxContactRepository) UpdateContact(ctx context.Context, contact domain.Contact) error {
	m := mapping.ToModelContact(contact)

	query := `
		UPDATE contacts
		SET name = $2, last_updated_at = $3, last_updated_by = $4
		WHERE contact_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, m.ContactID, m.Name, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update contact "+m.ContactID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("contact " + m.ContactID + " not found for update")
	}
	return nil
}

// FindReciprocal locates the contact owned by ownerUserID that references
// refUserID back.
func (r *PgxContactRepository) FindReciprocal(ctx context.Context, ownerUserID, refUserID string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_user_id = $1 AND ref_user_id = $2;`

	m, err := r.scanOne(r.Pool.QueryRow(ctx, query, ownerUserID, refUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reciprocal contact for user %s: %w", ownerUserID, err)
	}

	contact := mapping.ToDomainContact(*m)
	return &contact, nil
}

// GetOrCreateReciprocal returns the contact owned by ownerUserID referencing
// refUserID, creating it on first use. The partial unique index on
// (owner_user_id, ref_user_id) makes concurrent creation collapse to a
// single row; losers of the race fall through to the select.
func (r *PgxContactRepository) GetOrCreateReciprocal(ctx context.Context, ownerUserID, refUserID, name string, now time.Time) (*domain.Contact, error) {
	insertQuery := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $5, $6)
		ON CONFLICT (owner_user_id, ref_user_id) WHERE ref_user_id IS NOT NULL DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, insertQuery,
		uuid.NewString(), ownerUserID, name, refUserID, now, refUserID,
	); err != nil {
		return nil, apperrors.NewAppError(500, "failed to create reciprocal contact for user "+ownerUserID, err)
	}

	return r.FindReciprocal(ctx, ownerUserID, refUserID)
}

func (r *PgxContactRepository) scanOne(row pgx.Row) (*models.Contact, error) {
	var m models.Contact
	err := row.Scan(
		&m.ContactID, &m.OwnerUserID, &m.Name, &m.RefUserID,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
