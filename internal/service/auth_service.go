package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ocgamma/internal/auth"
	apperrors "ocgamma/internal/errors"
	"ocgamma/internal/model"
	"ocgamma/internal/repository"
)

const bcryptCost = 10

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Email    string
	Username string
	FullName *string
	Password string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (accessToken string, user *model.User, err error)
	Authenticate(ctx context.Context, accessToken string) (*model.User, *auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	userRepo   repository.UserRepository
	users      UserService
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, users UserService, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		userRepo:   userRepo,
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

// Register creates a new user with hashed password.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	// Check if email or username is already taken
	if err := s.ensureFree(ctx, s.userRepo.FindByEmail, in.Email, apperrors.ErrEmailTaken); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.userRepo.FindByUsername, in.Username, apperrors.ErrUsernameTaken); err != nil {
		return nil, err
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:           in.Email,
		Username:        in.Username,
		FullName:        in.FullName,
		HashedPassword:  hashedPassword,
		IsActive:        true,
		Role:            model.DefaultRole,
		ThemePreference: model.ThemeSystem,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *authService) ensureFree(ctx context.Context, find func(context.Context, string) (*model.User, error), value string, taken error) error {
	existing, err := find(ctx, value)
	if err == nil && existing != nil {
		return taken
	}
	// If error is not "record not found", return it (could be a database error)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check user existence: %w", err)
	}
	return nil
}

// Login authenticates a user and returns a session token.
func (s *authService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, apperrors.ErrUserInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("generate access token: %w", err)
	}

	return accessToken, user, nil
}

// Authenticate resolves a session token to an active user.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*model.User, *auth.Claims, error) {
	claims, err := s.jwtService.ValidateToken(accessToken)
	if err != nil {
		return nil, nil, apperrors.ErrNotAuthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, apperrors.ErrNotAuthenticated
	}

	revoked, err := s.tokenStore.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, apperrors.ErrNotAuthenticated
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrUserNotFound
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.ErrUserInactive
	}

	return user, claims, nil
}

// Logout revokes the presented session token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	return s.tokenStore.RevokeAccessToken(ctx, claims.ID, claims.TTL())
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
