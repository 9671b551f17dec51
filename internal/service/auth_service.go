package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"minidrive/internal/auth"
	"minidrive/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService регистрирует пользователей и выдаёт токены доступа.
type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

func validateRegisterRequest(req *domain.RegisterRequest) error {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return &domain.InvalidArgumentError{Reason: "invalid email"}
	}
	if len(req.Username) < 3 || len(req.Username) > 50 {
		return &domain.InvalidArgumentError{Reason: "username must be 3-50 characters"}
	}
	if len(req.Password) < 8 {
		return &domain.InvalidArgumentError{Reason: "password must be at least 8 characters"}
	}
	return nil
}

// Register создаёт пользователя со стандартной квотой хранилища.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	if existing, err := s.users.GetByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if existing != nil {
		return nil, &domain.InvalidArgumentError{Reason: "email already registered"}
	}
	if existing, err := s.users.GetByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if existing != nil {
		return nil, &domain.InvalidArgumentError{Reason: "username already taken"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		StorageQuota: domain.DefaultStorageQuota,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("[AuthService] Зарегистрирован пользователь %d (%s)", user.ID, user.Username)
	return user, nil
}

// Login проверяет учётные данные и выдаёт JWT.
// Неверный email и неверный пароль дают одну и ту же ошибку.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.LoginResponse{
		Token:    token,
		Username: user.Username,
	}, nil
}
