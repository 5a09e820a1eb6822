// internal/adapter/storage/user_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/domain/identity"
)

// UserStore implements storage for users and their profiles
type UserStore struct {
	db *pgxpool.Pool
}

// NewUserStore creates a new user store
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{
		db: db,
	}
}

const userSelect = `
	SELECT u.id, u.username, u.email, u.is_active, u.created_at, COALESCE(p.role, 'USER')
	FROM users u
	LEFT JOIN user_profiles p ON p.user_id = u.id`

// CreateUserWithProfile inserts a user and its profile in one transaction
func (s *UserStore) CreateUserWithProfile(ctx context.Context, u identity.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, username, email, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.Email, u.IsActive, u.CreatedAt,
	); err != nil {
		return translateError(fmt.Errorf("error inserting user: %w", err), nil)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (user_id, role) VALUES ($1, $2)`,
		u.ID, string(u.Profile.Role),
	); err != nil {
		return fmt.Errorf("error inserting profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *UserStore) GetUser(ctx context.Context, id string) (*identity.User, error) {
	if !validID(id) {
		return nil, identity.ErrUserNotFound
	}

	u, err := scanUser(s.db.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, translateError(err, identity.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*identity.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, userSelect+` WHERE u.username = $1`, username))
	if err != nil {
		return nil, translateError(err, identity.ErrUserNotFound)
	}
	return u, nil
}

// ListUsers returns every user ordered by username
func (s *UserStore) ListUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := s.db.Query(ctx, userSelect+` ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []identity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser saves a user and its profile together
func (s *UserStore) UpdateUser(ctx context.Context, u identity.User) error {
	if !validID(u.ID) {
		return identity.ErrUserNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, is_active = $4 WHERE id = $1`,
		u.ID, u.Username, u.Email, u.IsActive,
	)
	if err != nil {
		return translateError(fmt.Errorf("error updating user: %w", err), nil)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}

	// The profile row is kept in step with the user on every save
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`,
		u.ID, string(u.Profile.Role),
	); err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// DeleteUser removes a user; profile, organized events, their subsections and
// schedules cascade
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return identity.ErrUserNotFound
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of users
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var (
		u    identity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt, &role); err != nil {
		return nil, err
	}
	u.Profile = identity.Profile{UserID: u.ID, Role: identity.Role(role)}
	return &u, nil
}
