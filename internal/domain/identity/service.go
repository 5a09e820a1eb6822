// internal/domain/identity/service.go

package identity

import (
	"context"
	"errors"
	"time"
)

// Role gates what a user may do
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
	RoleUser      Role = "USER"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleUser:
		return true
	}
	return false
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrUnauthorized     = errors.New("authentication required")
	ErrForbidden        = errors.New("permission denied")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidUserInput = errors.New("invalid user input")
)

// Profile carries the role of exactly one user
type Profile struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// User is an account holder
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

// Role returns the user's role, or "" for a nil user
func (u *User) Role() Role {
	if u == nil {
		return ""
	}
	return u.Profile.Role
}

// Authorize reports whether user is active and holds one of the roles.
// A nil user is never authorized.
func Authorize(user *User, roles ...Role) bool {
	if user == nil || !user.IsActive {
		return false
	}
	for _, r := range roles {
		if user.Profile.Role == r {
			return true
		}
	}
	return false
}

// Require returns ErrUnauthorized when user is missing or inactive and
// ErrForbidden when user holds none of roles
func Require(user *User, roles ...Role) error {
	if user == nil || !user.IsActive {
		return ErrUnauthorized
	}
	if !Authorize(user, roles...) {
		return ErrForbidden
	}
	return nil
}

// RequireManage is the error-returning form of CanManage
func RequireManage(user *User, ownerID string) error {
	if err := Require(user, RoleAdmin, RoleOrganizer); err != nil {
		return err
	}
	if !CanManage(user, ownerID) {
		return ErrForbidden
	}
	return nil
}

// CanManage reports whether user may modify content owned by ownerID:
// admins always, organizers only their own.
func CanManage(user *User, ownerID string) bool {
	if Authorize(user, RoleAdmin) {
		return true
	}
	return Authorize(user, RoleOrganizer) && user.ID == ownerID
}

// NewUser holds the fields needed to create a user and its profile
type NewUser struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Role     Role   `json:"role" validate:"oneof=ADMIN ORGANIZER USER"`
}

// UserUpdate holds the admin-editable fields of a user
type UserUpdate struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Role     Role   `json:"role" validate:"oneof=ADMIN ORGANIZER USER"`
}

// Summary holds dashboard totals
type Summary struct {
	TotalUsers  int `json:"total_users"`
	TotalEvents int `json:"total_events"`
}

// Service defines user management operations. actor is the caller; nil
// means an anonymous caller.
type Service interface {
	// CreateUserWithProfile creates a user and its profile together
	CreateUserWithProfile(ctx context.Context, actor *User, input NewUser) (*User, error)

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*User, error)

	// ListUsers returns every user (admin only)
	ListUsers(ctx context.Context, actor *User) ([]User, error)

	// UpdateUser changes username, email and role (admin only)
	UpdateUser(ctx context.Context, actor *User, id string, input UserUpdate) (*User, error)

	// DeleteUser removes a user and, by cascade, everything they organize (admin only)
	DeleteUser(ctx context.Context, actor *User, id string) error

	// Summary returns dashboard totals (admin only)
	Summary(ctx context.Context, actor *User) (*Summary, error)
}

// TokenManager handles authentication tokens
type TokenManager interface {
	// GenerateToken generates a token for a user
	GenerateToken(userID string, ttl time.Duration) (string, error)

	// ValidateToken validates a token and returns the user ID
	ValidateToken(token string) (string, error)
}
