package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "ocgamma/internal/errors"
	"ocgamma/internal/model"
	"ocgamma/internal/repository"
)

// ProfileUpdate lists the profile fields a user may change; nil means unchanged.
type ProfileUpdate struct {
	Email    *string
	FullName *string
}

// UserService exposes domain operations.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, upd ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, id uint, currentPassword, newPassword string) error
	UpdateTheme(ctx context.Context, id uint, pref model.ThemePreference) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService builds a UserService over the repository.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// GetUser always reads the database, so a user deactivated there loses
// access on the next request.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, id uint, upd ProfileUpdate) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if upd.Email != nil && *upd.Email != user.Email {
		existing, err := s.repo.FindByEmail(ctx, *upd.Email)
		if err == nil && existing != nil && existing.ID != id {
			return nil, apperrors.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		fields["email"] = *upd.Email
	}
	if upd.FullName != nil {
		fields["full_name"] = *upd.FullName
	}
	if len(fields) == 0 {
		return user, nil
	}

	return s.update(ctx, user, fields)
}

// ChangePassword verifies against the stored hash, so it always reads the database.
func (s *userService) ChangePassword(ctx context.Context, id uint, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(currentPassword)); err != nil {
		return apperrors.ErrIncorrectPassword
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, user, map[string]interface{}{"hashed_password": hashed})
	return err
}

func (s *userService) UpdateTheme(ctx context.Context, id uint, pref model.ThemePreference) (*model.User, error) {
	if !pref.Valid() {
		return nil, apperrors.NewValidationError([]apperrors.FieldError{{
			Loc:  []string{"body", "theme_preference"},
			Msg:  "must be one of: light dark system",
			Type: "oneof",
		}})
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, user, map[string]interface{}{"theme_preference": pref})
}

func (s *userService) update(ctx context.Context, user *model.User, fields map[string]interface{}) (*model.User, error) {
	if err := s.repo.Update(ctx, user, fields); err != nil {
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return user, nil
}
