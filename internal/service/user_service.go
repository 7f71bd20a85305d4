package service

import (
	"context"
	"errors"

	"helpdesk/internal/apierror"
	"helpdesk/internal/dto"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/session"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// UserService handles account registration and management.
type UserService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error)
	Profile(ctx context.Context, caller session.Identity) (*dto.ProfileResponse, error)
	ChangePassword(ctx context.Context, caller session.Identity, req dto.ChangePasswordRequest) error
	List(ctx context.Context, caller session.Identity) ([]dto.UserResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func mapUser(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   string(u.Role),
		Office: u.Office,
	}
}

func (s *userService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	role := model.RoleUser
	if req.Role != "" {
		role = model.Role(req.Role)
		if !role.Valid() {
			return nil, apierror.Validation("Rol no valido")
		}
	}
	if !model.ValidOffice(req.Office) {
		return nil, apierror.Validation("Oficina no valida")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Office:       req.Office,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apierror.Conflict("El email ya esta registrado")
		}
		return nil, apierror.Internal(err)
	}

	resp := mapUser(user)
	return &resp, nil
}

func (s *userService) Profile(ctx context.Context, caller session.Identity) (*dto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("Usuario no encontrado")
		}
		return nil, apierror.Internal(err)
	}
	return &dto.ProfileResponse{
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(user.Role),
		Office: user.Office,
	}, nil
}

func (s *userService) ChangePassword(ctx context.Context, caller session.Identity, req dto.ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("Usuario no encontrado")
		}
		return apierror.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return apierror.Validation("La contrasena actual es incorrecta")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return apierror.Internal(err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return apierror.Internal(err)
	}
	return nil
}

func (s *userService) List(ctx context.Context, caller session.Identity) ([]dto.UserResponse, error) {
	if caller.Role != model.RoleAdmin {
		return nil, apierror.Forbidden("Permisos insuficientes")
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, mapUser(&users[i]))
	}
	return result, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound("Usuario no encontrado")
	}
	if err != nil {
		return apierror.Internal(err)
	}
	return nil
}
