package service

import (
	"context"
	"errors"
	"strings"

	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService is the admin surface over accounts. Account creation itself
// lives in AuthService so the CLI and the API share it.
type UserService interface {
	List(ctx context.Context) ([]model.UserResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	Create(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateUserRequest, callerID uuid.UUID) (*model.UserResponse, error)
	Delete(ctx context.Context, id, callerID uuid.UUID) error
}

type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager staff"`
	IsActive *bool   `json:"is_active"`
}

type userService struct {
	userRepo repository.UserRepository
	auth     AuthService
}

func NewUserService(userRepo repository.UserRepository, auth AuthService) UserService {
	return &userService{
		userRepo: userRepo,
		auth:     auth,
	}
}

func (s *userService) List(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error) {
	user, err := s.auth.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	response := user.ToResponse()
	return &response, nil
}

// Update changes the given fields. Any change to the password, role or active
// flag ends the user's current session.
func (s *userService) Update(ctx context.Context, id uuid.UUID, req *UpdateUserRequest, callerID uuid.UUID) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	// 3. Admins cannot lock themselves out
	if id == callerID {
		if req.IsActive != nil && !*req.IsActive {
			return nil, validationErrorf("cannot deactivate your own account")
		}
		if req.Role != nil && *req.Role != model.RoleAdmin {
			return nil, validationErrorf("cannot change your own role")
		}
	}

	fields := map[string]interface{}{}
	endSession := false

	// 4. Email must stay unique
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
				return nil, validationErrorf("email %q already in use", email)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			fields["email"] = email
		}
	}
	if req.Role != nil && *req.Role != user.Role {
		fields["role"] = *req.Role
		endSession = true
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		fields["is_active"] = *req.IsActive
		endSession = true
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
		fields["password"] = user.Password
		endSession = true
	}
	if endSession {
		fields["token_version"] = uuid.NewString()
	}

	// 5. Save and reload
	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, notFound(err, "user")
		}
	}
	return s.Get(ctx, id)
}

func (s *userService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if id == callerID {
		return validationErrorf("cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return notFound(err, "user")
	}
	return nil
}
