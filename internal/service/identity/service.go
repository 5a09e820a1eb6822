// internal/service/identity/service.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stagemap/internal/domain/identity"
	"stagemap/internal/validation"
)

// UserStore defines the storage interface for users and their profiles
type UserStore interface {
	// CreateUserWithProfile inserts a user and its profile in one transaction
	CreateUserWithProfile(ctx context.Context, u identity.User) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*identity.User, error)

	// GetUserByUsername retrieves a user by username
	GetUserByUsername(ctx context.Context, username string) (*identity.User, error)

	// ListUsers returns every user ordered by username
	ListUsers(ctx context.Context) ([]identity.User, error)

	// UpdateUser saves a user and its profile together
	UpdateUser(ctx context.Context, u identity.User) error

	// DeleteUser removes a user; profile and organized events cascade
	DeleteUser(ctx context.Context, id string) error

	// CountUsers returns the number of users
	CountUsers(ctx context.Context) (int, error)
}

// EventCounter counts stored events for the admin summary
type EventCounter interface {
	CountEvents(ctx context.Context) (int, error)
}

// ListingInvalidator drops cached listings that embed user-owned data
type ListingInvalidator interface {
	Invalidate(ctx context.Context) error
}

// UserServiceConfig contains configuration for the user service
type UserServiceConfig struct {
	TokenExpiry time.Duration
}

// UserService implements the identity.Service interface
type UserService struct {
	users       UserStore
	events      EventCounter
	tokens      identity.TokenManager
	invalidator ListingInvalidator
	logger      *zap.Logger
	config      UserServiceConfig
	now         func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	users UserStore,
	events EventCounter,
	tokens identity.TokenManager,
	logger *zap.Logger,
	config UserServiceConfig,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 24 * time.Hour
	}

	return &UserService{
		users:  users,
		events: events,
		tokens: tokens,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// WithInvalidator registers a cache that must forget listings when users are deleted
func (s *UserService) WithInvalidator(inv ListingInvalidator) *UserService {
	s.invalidator = inv
	return s
}

// CreateUserWithProfile creates a user and its profile together. Anonymous
// callers may register as USER or ORGANIZER; only admins may create admins.
func (s *UserService) CreateUserWithProfile(ctx context.Context, actor *identity.User, input identity.NewUser) (*identity.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Role == "" {
		input.Role = identity.RoleUser
	}

	if err := validateUser(input); err != nil {
		return nil, err
	}

	if input.Role == identity.RoleAdmin {
		if err := identity.Require(actor, identity.RoleAdmin); err != nil {
			return nil, err
		}
	}

	return s.createUser(ctx, input)
}

// EnsureAdmin returns the admin called username, creating it when missing.
// It is an operator bootstrap path and performs no actor check.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email string) (*identity.User, error) {
	existing, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err == nil:
		if existing.Profile.Role != identity.RoleAdmin {
			return nil, fmt.Errorf("%w: user %q exists without the admin role", identity.ErrUsernameTaken, username)
		}
		return existing, nil
	case !errors.Is(err, identity.ErrUserNotFound):
		return nil, err
	}

	input := identity.NewUser{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: identity.RoleAdmin}
	if err := validateUser(input); err != nil {
		return nil, err
	}
	return s.createUser(ctx, input)
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*identity.User, error) {
	return s.users.GetUser(ctx, id)
}

// ListUsers returns every user (admin only)
func (s *UserService) ListUsers(ctx context.Context, actor *identity.User) ([]identity.User, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

// UpdateUser changes username, email and role (admin only)
func (s *UserService) UpdateUser(ctx context.Context, actor *identity.User, id string, input identity.UserUpdate) (*identity.User, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateUser(input); err != nil {
		return nil, err
	}

	u.Username = input.Username
	u.Email = input.Email
	u.Profile = identity.Profile{UserID: u.ID, Role: input.Role}

	if err := s.users.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", zap.String("user_id", u.ID), zap.String("role", string(u.Profile.Role)))

	return u, nil
}

// DeleteUser removes a user and, by cascade, everything they organize (admin only)
func (s *UserService) DeleteUser(ctx context.Context, actor *identity.User, id string) error {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return fmt.Errorf("%w: admins cannot delete themselves", identity.ErrInvalidUserInput)
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate event listing", zap.Error(err))
		}
	}

	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.ID))

	return nil
}

// Summary returns dashboard totals (admin only)
func (s *UserService) Summary(ctx context.Context, actor *identity.User) (*identity.Summary, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	events, err := s.events.CountEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting events: %w", err)
	}

	return &identity.Summary{TotalUsers: users, TotalEvents: events}, nil
}

// IssueToken returns a bearer token for an active user
func (s *UserService) IssueToken(ctx context.Context, userID string) (string, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", fmt.Errorf("%w: user is inactive", identity.ErrInvalidUserInput)
	}
	return s.tokens.GenerateToken(u.ID, s.config.TokenExpiry)
}

// IssueTokenFor is the admin endpoint form of IssueToken
func (s *UserService) IssueTokenFor(ctx context.Context, actor *identity.User, userID string) (string, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return "", err
	}
	return s.IssueToken(ctx, userID)
}

// Authenticate resolves a bearer token to an active user
func (s *UserService) Authenticate(ctx context.Context, token string) (*identity.User, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, identity.ErrUnauthorized
	}

	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, identity.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, identity.ErrUnauthorized
	}
	return u, nil
}

func (s *UserService) createUser(ctx context.Context, input identity.NewUser) (*identity.User, error) {
	id := uuid.New().String()
	u := identity.User{
		ID:        id,
		Username:  input.Username,
		Email:     input.Email,
		IsActive:  true,
		Profile:   identity.Profile{UserID: id, Role: input.Role},
		CreatedAt: s.now().UTC(),
	}

	if err := s.users.CreateUserWithProfile(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Profile.Role)))

	return &u, nil
}

func validateUser(input any) error {
	err := validation.Struct(input)
	if err == nil {
		return nil
	}

	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return fmt.Errorf("%w: %s", identity.ErrInvalidUserInput, fe.Reason)
	}
	return err
}
