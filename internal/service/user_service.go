package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"

	"github.com/google/uuid"
)

type UserService interface {
	ListUsers(ctx context.Context, q model.ListQuery) (*model.Page[model.UserResponse], error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// UpdateUserRequest leaves the password unchanged when it is empty.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) ListUsers(ctx context.Context, q model.ListQuery) (*model.Page[model.UserResponse], error) {
	q.Normalize()
	users, total, err := s.userRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	data := make([]model.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, users[i].ToResponse())
	}
	return &model.Page[model.UserResponse]{Data: data, Pagination: model.NewPagination(total, q)}, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.UserResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validateRequest(&req).err(); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email, uuid.Nil); err != nil {
		return nil, err
	}

	user := &model.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  model.UserRole(req.Role),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*model.UserResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validateRequest(&req).err(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != user.Email {
		if err := s.ensureEmailFree(ctx, req.Email, id); err != nil {
			return nil, err
		}
	}

	user.Name = req.Name
	user.Email = req.Email
	user.Role = model.UserRole(req.Role)
	if req.Password != "" {
		if err := user.SetPassword(req.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	resp := user.ToResponse()
	return &resp, nil
}

// DeleteUser soft-deletes a user. Users cannot delete themselves.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID) error {
	if id == actingUserID {
		return model.InvalidField("id", "cannot delete your own account")
	}
	return s.userRepo.Delete(ctx, id)
}

// EnsureAdmin seeds the default administrator when no user has that email.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	admin := &model.User{Name: "Administrator", Email: email, Role: model.RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info(ctx).Str("email", email).Msg("Default admin user created")
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, exceptID uuid.UUID) error {
	taken, err := s.userRepo.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: email %q", model.ErrDuplicate, email)
	}
	return nil
}
