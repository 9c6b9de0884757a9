package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/core/services"
)

type RecalcServiceTestSuite struct {
	suite.Suite
	mockContactRepo *MockContactRepository
	mockBalanceRepo *MockBalanceRepository
	service         portssvc.RecalcSvcFacade

	userID  string
	contact domain.Contact
}

func (suite *RecalcServiceTestSuite) SetupTest() {
	suite.mockContactRepo = new(MockContactRepository)
	suite.mockBalanceRepo = new(MockBalanceRepository)
	suite.service = services.NewRecalcService(suite.mockContactRepo, suite.mockBalanceRepo)

	suite.userID = uuid.NewString()
	suite.contact = domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: suite.userID,
		Name:        "Alex",
	}
}

func (suite *RecalcServiceTestSuite) TestRebuild_ReturnsFreshBalances() {
	ctx := context.Background()
	rebuilt := []domain.Balance{
		{ContactID: suite.contact.ContactID, CurrencyID: uuid.NewString(), Amount: decimal.NewFromInt(70)},
		{ContactID: suite.contact.ContactID, CurrencyID: uuid.NewString(), Amount: decimal.Zero},
	}

	suite.mockContactRepo.On("FindContactByID", ctx, suite.contact.ContactID).Return(&suite.contact, nil).Once()
	suite.mockBalanceRepo.On("RebuildForContact", ctx, suite.contact.ContactID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockBalanceRepo.On("Query", ctx, suite.contact.ContactID, (*string)(nil)).Return(rebuilt, nil).Once()

	balances, err := suite.service.Rebuild(ctx, suite.userID, suite.contact.ContactID)

	suite.Require().NoError(err)
	suite.Len(balances, 2)
	suite.True(balances[1].Amount.IsZero())
	suite.mockBalanceRepo.AssertExpectations(suite.T())
}

func (suite *RecalcServiceTestSuite) TestRebuild_ForeignContactHidden() {
	ctx := context.Background()
	otherUser := uuid.NewString()

	suite.mockContactRepo.On("FindContactByID", ctx, suite.contact.ContactID).Return(&suite.contact, nil).Once()

	_, err := suite.service.Rebuild(ctx, otherUser, suite.contact.ContactID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockBalanceRepo.AssertNotCalled(suite.T(), "RebuildForContact", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RecalcServiceTestSuite) TestRebuild_RepoFailure() {
	ctx := context.Background()

	suite.mockContactRepo.On("FindContactByID", ctx, suite.contact.ContactID).Return(&suite.contact, nil).Once()
	suite.mockBalanceRepo.On("RebuildForContact", ctx, suite.contact.ContactID, mock.AnythingOfType("time.Time")).Return(apperrors.ErrInternal).Once()

	_, err := suite.service.Rebuild(ctx, suite.userID, suite.contact.ContactID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInternal)
}

func TestRecalcServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecalcServiceTestSuite))
}
