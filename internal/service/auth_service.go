package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/pkg/jwt"
	"go-inventory-ledger/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*model.User, error)
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error)
	SetPassword(ctx context.Context, username, password string) error
	EnsureAdmin(ctx context.Context, req *CreateUserRequest) (bool, error)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	// 1. Find user
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Check account state and password
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Single session: a new token version invalidates older tokens
	tokenVersion := uuid.NewString()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, tokenVersion); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role, tokenVersion)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	logger.Info(ctx).Str("user_id", user.ID.String()).Msg("user logged in")

	return &LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

// ValidateToken resolves the user behind a token, enforcing the single
// active session.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jwt.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return user, nil
}

func (s *authService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, validationErrorf("username %q already in use", req.Username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationErrorf("username or email already in use")
		}
		return nil, err
	}
	return user, nil
}

// SetPassword replaces a user's password and ends their current session.
func (s *authService) SetPassword(ctx context.Context, username, password string) error {
	if len(password) < 8 {
		return validationErrorf("password must be at least 8 characters")
	}

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return notFound(err, "user "+username)
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.NewString())
}

// EnsureAdmin creates the admin account described by req unless a user with
// that username exists. It reports whether a user was created.
func (s *authService) EnsureAdmin(ctx context.Context, req *CreateUserRequest) (bool, error) {
	_, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	req.Role = model.RoleAdmin
	if _, err := s.CreateUser(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}
