package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/owetrack/owetrack/internal/core/domain"
	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

// currencyService manages global currency reference data.
type currencyService struct {
	currencyRepo portsrepo.CurrencyRepositoryFacade
}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService(currencyRepo portsrepo.CurrencyRepositoryFacade) portssvc.CurrencySvcFacade {
	return &currencyService{currencyRepo: currencyRepo}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// CreateCurrency registers a new currency. Currencies are shared across all
// users; duplicates by name surface as ErrDuplicate from the repository.
func (s *currencyService) CreateCurrency(ctx context.Context, userID string, req dto.CreateCurrencyRequest) (*domain.Currency, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	currency := domain.Currency{
		CurrencyID: uuid.NewString(),
		Name:       req.Name,
		Symbol:     req.Symbol,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.currencyRepo.SaveCurrency(ctx, currency); err != nil {
		logger.Error("Failed to create currency", slog.String("error", err.Error()), slog.String("name", req.Name))
		return nil, fmt.Errorf("failed to create currency: %w", err)
	}

	logger.Info("Currency created", slog.String("currency_id", currency.CurrencyID), slog.String("symbol", currency.Symbol))
	return &currency, nil
}

// GetCurrencyByID retrieves a currency by its ID.
func (s *currencyService) GetCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error) {
	return s.currencyRepo.FindCurrencyByID(ctx, currencyID)
}

// ListCurrencies returns all registered currencies.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.currencyRepo.ListCurrencies(ctx)
}
