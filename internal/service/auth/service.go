package auth

import (
	"context"
	"fmt"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
	"github.com/physiokit/portal-api/pkg/auth"
	apperrors "github.com/physiokit/portal-api/pkg/errors"
	"github.com/physiokit/portal-api/pkg/security"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

type Service struct {
	repo   repository.AdminUserRepository
	jwt    auth.JWTService
	hasher security.PasswordHasher
}

func NewService(repo repository.AdminUserRepository, jwt auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		jwt:    jwt,
		hasher: hasher,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, err := s.jwt.GenerateToken(user.ID, user.ClinicID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{Token: token, User: user}, nil
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
