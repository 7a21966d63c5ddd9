package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
	"github.com/vendfleet/server/internal/auth"
)

// Credentials is the response of a successful signup or signin.
type Credentials struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// UserService handles operator accounts: signup, signin and the notification
// feed. Passwords are stored as bcrypt hashes; tokens are signed, expiring
// JWTs.
type UserService struct {
	users  repositories.UserRepository
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repositories.UserRepository, tokens *auth.TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, logger: logger}
}

// SignUp creates an account and returns a fresh token.
func (s *UserService) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields must be filled", entities.ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueUserToken(email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User signed up", zap.String("email", email))
	return &Credentials{Username: email, Token: token}, nil
}

// SignIn verifies credentials and returns a fresh token. An unknown email and
// a wrong password fail the same way so the endpoint does not reveal which
// accounts exist.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields must be filled", entities.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, entities.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, entities.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueUserToken(email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User signed in", zap.String("email", email))
	return &Credentials{Username: email, Token: token}, nil
}

// Notifications returns the user's notification feed.
func (s *UserService) Notifications(ctx context.Context, email string) ([]entities.Notification, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", entities.ErrValidation)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Notifications == nil {
		return []entities.Notification{}, nil
	}
	return user.Notifications, nil
}
