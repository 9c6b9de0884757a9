package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/core/services"
	"github.com/owetrack/owetrack/internal/dto"
)

type ContactServiceTestSuite struct {
	suite.Suite
	mockContactRepo *MockContactRepository
	mockUserRepo    *MockUserRepository
	service         portssvc.ContactSvcFacade

	userID string
}

func (suite *ContactServiceTestSuite) SetupTest() {
	suite.mockContactRepo = new(MockContactRepository)
	suite.mockUserRepo = new(MockUserRepository)
	suite.service = services.NewContactService(suite.mockContactRepo, suite.mockUserRepo)
	suite.userID = uuid.NewString()
}

func (suite *ContactServiceTestSuite) TestCreateContact_Unlinked() {
	ctx := context.Background()
	req := dto.CreateContactRequest{Name: "Alex"}

	suite.mockContactRepo.On("SaveContact", ctx, mock.MatchedBy(func(c domain.Contact) bool {
		return c.OwnerUserID == suite.userID && c.Name == "Alex" && c.RefUserID == nil
	})).Return(nil).Once()

	contact, err := suite.service.CreateContact(ctx, suite.userID, req)

	suite.Require().NoError(err)
	suite.False(contact.IsLinked())
	suite.mockContactRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertNotCalled(suite.T(), "FindUserByID", mock.Anything, mock.Anything)
}

func (suite *ContactServiceTestSuite) TestCreateContact_LinkedValidatesRefUser() {
	ctx := context.Background()
	refUserID := uuid.NewString()
	req := dto.CreateContactRequest{Name: "Bobby", RefUserID: &refUserID}

	suite.mockUserRepo.On("FindUserByID", ctx, refUserID).Return(&domain.User{UserID: refUserID}, nil).Once()
	suite.mockContactRepo.On("SaveContact", ctx, mock.MatchedBy(func(c domain.Contact) bool {
		return c.IsLinked() && *c.RefUserID == refUserID
	})).Return(nil).Once()

	contact, err := suite.service.CreateContact(ctx, suite.userID, req)

	suite.Require().NoError(err)
	suite.True(contact.IsLinked())
}

func (suite *ContactServiceTestSuite) TestCreateContact_SelfLinkRejected() {
	ctx := context.Background()
	req := dto.CreateContactRequest{Name: "Me", RefUserID: &suite.userID}

	_, err := suite.service.CreateContact(ctx, suite.userID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockContactRepo.AssertNotCalled(suite.T(), "SaveContact", mock.Anything, mock.Anything)
}

func (suite *ContactServiceTestSuite) TestCreateContact_UnknownRefUserRejected() {
	ctx := context.Background()
	refUserID := uuid.NewString()
	req := dto.CreateContactRequest{Name: "Ghost", RefUserID: &refUserID}

	suite.mockUserRepo.On("FindUserByID", ctx, refUserID).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateContact(ctx, suite.userID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ContactServiceTestSuite) TestUpdateContact_RenameOnly() {
	ctx := context.Background()
	contact := domain.Contact{
		ContactID:   uuid.NewString(),
		OwnerUserID: suite.userID,
		Name:        "Old Name",
	}
	newName := "New Name"

	suite.mockContactRepo.On("FindContactByID", ctx, contact.ContactID).Return(&contact, nil).Once()
	suite.mockContactRepo.On("UpdateContact", ctx, mock.MatchedBy(func(c domain.Contact) bool {
		return c.Name == newName && c.ContactID == contact.ContactID
	})).Return(nil).Once()

	updated, err := suite.service.UpdateContact(ctx, suite.userID, contact.ContactID, dto.UpdateContactRequest{Name: &newName})

	suite.Require().NoError(err)
	suite.Equal(newName, updated.Name)
}

func TestContactServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ContactServiceTestSuite))
}
