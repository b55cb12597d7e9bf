// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup and credential checks.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// SignupInput carries the signup form values.
type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// NewAuthService builds an AuthService. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{userRepo: userRepo, bcryptCost: bcryptCost}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Signup validates uniqueness up front, hashes the password and inserts the user.
// Every rejection satisfies errors.Is(err, models.ErrIntegrity).
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "AuthService.Signup")
	defer func() { end(err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Username == "":
		return nil, models.ErrRequiredField("username")
	case in.Email == "":
		return nil, models.ErrRequiredField("email")
	case in.Password == "":
		return nil, models.ErrRequiredField("password")
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrUsernameTaken
	}

	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrEmailTaken
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	// A concurrent signup can still win the race; the repository maps that to the same errors.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up", slog.Uint64("new_user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate returns the user when username and password match.
// Bad credentials give a nil user and a nil error; errors are reserved for infrastructure failures.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "AuthService.Authenticate")
	defer func() { end(err) }()

	user, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		middleware.Logger.DebugContext(ctx, "authentication failed", slog.String("reason", "unknown_username"))
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			middleware.Logger.WarnContext(ctx, "stored password hash is unusable",
				slog.Uint64("target_user_id", uint64(user.ID)), slog.String("error", err.Error()))
		}
		middleware.Logger.DebugContext(ctx, "authentication failed", slog.String("reason", "wrong_password"))
		return nil, nil
	}

	return user, nil
}

// ResetPassword replaces a user's password without knowing the old one.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundError("User", username)
	}

	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, hash)
}
