package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/middleware"
)

// recalcService rebuilds materialized balances from the transaction log,
// which remains the source of truth. Running it is always safe: with no
// intervening writes the result is identical to the incremental state.
type recalcService struct {
	contactRepo portsrepo.ContactRepositoryFacade
	balanceRepo portsrepo.BalanceRepositoryFacade
}

// NewRecalcService creates a new RecalcService.
func NewRecalcService(contactRepo portsrepo.ContactRepositoryFacade, balanceRepo portsrepo.BalanceRepositoryFacade) portssvc.RecalcSvcFacade {
	return &recalcService{
		contactRepo: contactRepo,
		balanceRepo: balanceRepo,
	}
}

var _ portssvc.RecalcSvcFacade = (*recalcService)(nil)

// Rebuild recomputes every balance row for the contact by summing its live
// transactions, then returns the fresh rows. Drafts and cancelled entries
// contribute nothing; currencies whose entries all cancelled out are reset
// to zero rather than deleted.
func (s *recalcService) Rebuild(ctx context.Context, userID, contactID string) ([]domain.Balance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	contact, err := s.contactRepo.FindContactByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.OwnerUserID != userID {
		return nil, apperrors.ErrNotFound
	}

	if err := s.balanceRepo.RebuildForContact(ctx, contactID, time.Now().UTC()); err != nil {
		logger.Error("Failed to rebuild balances", slog.String("error", err.Error()), slog.String("contact_id", contactID))
		return nil, fmt.Errorf("failed to rebuild balances for contact %s: %w", contactID, err)
	}

	balances, err := s.balanceRepo.Query(ctx, contactID, nil)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	logger.Info("Balances rebuilt", slog.String("contact_id", contactID), slog.Int("currencies", len(balances)))
	return balances, nil
}
