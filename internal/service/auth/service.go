package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/user"
	"github.com/medbook/booking-api/pkg/auth"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

type Service struct {
	userSvc    *user.Service
	jwtSvc     auth.JWTService
	tokenStore repository.TokenStore
}

func NewService(userSvc *user.Service, jwtSvc auth.JWTService, tokenStore repository.TokenStore) *Service {
	return &Service{
		userSvc:    userSvc,
		jwtSvc:     jwtSvc,
		tokenStore: tokenStore,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	created, err := s.userSvc.CreateUser(ctx, &model.CreateUserRequest{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", created.ID.String()).Msg("user registered")
	return s.issueToken(created)
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	validated, err := s.userSvc.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issueToken(validated)
}

// Logout blacklists the token until its natural expiry
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return apperrors.Unauthorized("invalid token")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokenStore.Revoke(ctx, token, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token")
	}

	revoked, err := s.tokenStore.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("token has been revoked")
	}
	return claims, nil
}

func (s *Service) issueToken(u *model.User) (*model.AuthResponse, error) {
	accessToken, err := s.jwtSvc.GenerateAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.AuthResponse{
		AccessToken: accessToken,
		User:        u,
	}, nil
}
