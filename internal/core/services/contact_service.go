package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

var ErrSelfContact = errors.New("a contact cannot reference its own owner")

type contactService struct {
	contactRepo portsrepo.ContactRepositoryFacade
	userRepo    portsrepo.UserRepositoryFacade
}

// NewContactService creates a new ContactService.
func NewContactService(contactRepo portsrepo.ContactRepositoryFacade, userRepo portsrepo.UserRepositoryFacade) portssvc.ContactSvcFacade {
	return &contactService{
		contactRepo: contactRepo,
		userRepo:    userRepo,
	}
}

var _ portssvc.ContactSvcFacade = (*contactService)(nil)

// CreateContact creates a contact for the user. A RefUserID must point at an
// existing user other than the owner; the reciprocal contact on the linked
// side is not created here but lazily on first mirrored transaction.
func (s *contactService) CreateContact(ctx context.Context, userID string, req dto.CreateContactRequest) (*domain.Contact, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.RefUserID != nil {
		if *req.RefUserID == userID {
			return nil, errors.Join(apperrors.ErrValidation, ErrSelfContact)
		}
		if _, err := s.userRepo.FindUserByID(ctx, *req.RefUserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: referenced user does not exist", apperrors.ErrValidation)
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	contact := domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: userID,
		Name:        req.Name,
		RefUserID:   req.RefUserID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.contactRepo.SaveContact(ctx, contact); err != nil {
		logger.Error("Failed to create contact", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	logger.Info("Contact created", slog.String("contact_id", contact.ContactID), slog.Bool("linked", contact.IsLinked()))
	return &contact, nil
}

// GetContactByID retrieves a contact scoped to its owner.
func (s *contactService) GetContactByID(ctx context.Context, userID, contactID string) (*domain.Contact, error) {
	contact, err := s.contactRepo.FindContactByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.OwnerUserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return contact, nil
}

// ListContacts retrieves a paginated list of the user's contacts.
func (s *contactService) ListContacts(ctx context.Context, userID string, params dto.ListContactsParams) (*dto.ListContactsResponse, error) {
	contacts, nextToken, err := s.contactRepo.ListContactsByOwner(ctx, userID, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve contacts: %w", err)
	}

	return &dto.ListContactsResponse{
		Contacts:  dto.ToContactResponses(contacts),
		NextToken: nextToken,
	}, nil
}

// UpdateContact applies the provided updates. The link target is immutable
// once set; only the display name can change.
func (s *contactService) UpdateContact(ctx context.Context, userID, contactID string, req dto.UpdateContactRequest) (*domain.Contact, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	contact, err := s.GetContactByID(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	contact.LastUpdatedAt = time.Now().UTC()
	contact.LastUpdatedBy = userID

	if err := s.contactRepo.UpdateContact(ctx, *contact); err != nil {
		logger.Error("Failed to update contact", slog.String("error", err.Error()), slog.String("contact_id", contactID))
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	return contact, nil
}
