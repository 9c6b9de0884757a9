package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

type authService struct {
	userSvc   portssvc.UserSvcFacade
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService issuing HS256 tokens.
func NewAuthService(userSvc portssvc.UserSvcFacade, jwtSecret string, jwtExpiry time.Duration) portssvc.AuthSvcFacade {
	return &authService{
		userSvc:   userSvc,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// Login authenticates the credentials and returns a signed access token.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	user, err := s.userSvc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.jwtExpiry)
	claims := jwt.RegisteredClaims{
		Subject:   user.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		logger.Error("Failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Info("User logged in", slog.String("user_id", user.UserID))
	return &dto.LoginResponse{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		UserID:      user.UserID,
	}, nil
}
