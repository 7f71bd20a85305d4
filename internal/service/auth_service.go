package service

import (
	"context"

	"helpdesk/internal/apierror"
	"helpdesk/internal/dto"
	"helpdesk/internal/repository"
	"helpdesk/internal/session"

	"golang.org/x/crypto/bcrypt"
)

// AuthService resolves credentials into server-side sessions.
type AuthService interface {
	// Login verifies credentials and returns the response body plus the
	// signed cookie value for the session it created.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, string, error)
	// Logout destroys the session behind the cookie value. Unknown or
	// tampered cookies are not an error — logout is idempotent.
	Logout(ctx context.Context, cookieValue string) error
}

type authService struct {
	repo     repository.UserRepository
	sessions session.Store
}

func NewAuthService(repo repository.UserRepository, sessions session.Store) AuthService {
	return &authService{repo: repo, sessions: sessions}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		// Same message for unknown email and bad password.
		return nil, "", apierror.Unauthorized("Credenciales invalidas")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", apierror.Unauthorized("Credenciales invalidas")
	}

	cookieValue, err := s.sessions.Create(ctx, session.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Office: user.Office,
	})
	if err != nil {
		return nil, "", apierror.Internal(err)
	}

	return &dto.LoginResponse{User: mapUser(user)}, cookieValue, nil
}

func (s *authService) Logout(ctx context.Context, cookieValue string) error {
	if cookieValue == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, cookieValue); err != nil && err != session.ErrNotFound {
		return apierror.Internal(err)
	}
	return nil
}
