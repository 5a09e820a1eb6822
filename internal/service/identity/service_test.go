package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagemap/internal/domain/identity"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]identity.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]identity.User)}
}

func (m *memoryUsers) CreateUserWithProfile(_ context.Context, u identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return identity.ErrUsernameTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryUsers) GetUser(_ context.Context, id string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryUsers) GetUserByUsername(_ context.Context, username string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memoryUsers) ListUsers(_ context.Context) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]identity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryUsers) UpdateUser(_ context.Context, u identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return identity.ErrUserNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryUsers) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return identity.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) CountUsers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type fixedEventCount int

func (c fixedEventCount) CountEvents(context.Context) (int, error) { return int(c), nil }

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func newTestService() (*UserService, *memoryUsers) {
	users := newMemoryUsers()
	svc := NewUserService(users, fixedEventCount(7), NewJWTTokenManager("test-secret"), nil, UserServiceConfig{TokenExpiry: time.Hour})
	return svc, users
}

func TestCreateUserWithProfile_CreatesProfileTogether(t *testing.T) {
	svc, users := newTestService()

	u, err := svc.CreateUserWithProfile(context.Background(), nil, identity.NewUser{Username: " alice ", Email: "alice@example.com", Role: identity.RoleOrganizer})
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsActive)
	assert.Equal(t, u.ID, u.Profile.UserID)
	assert.Equal(t, identity.RoleOrganizer, u.Profile.Role)

	stored, err := users.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleOrganizer, stored.Profile.Role)
}

func TestCreateUserWithProfile_DefaultsToUserRole(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.CreateUserWithProfile(context.Background(), nil, identity.NewUser{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleUser, u.Profile.Role)
}

func TestCreateUserWithProfile_AdminRoleRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "mallory", Email: "mallory@example.com", Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, identity.ErrUnauthorized)

	organizer := &identity.User{ID: "o", IsActive: true, Profile: identity.Profile{Role: identity.RoleOrganizer}}
	_, err = svc.CreateUserWithProfile(ctx, organizer, identity.NewUser{Username: "mallory", Email: "mallory@example.com", Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, identity.ErrForbidden)

	admin := &identity.User{ID: "a", IsActive: true, Profile: identity.Profile{Role: identity.RoleAdmin}}
	u, err := svc.CreateUserWithProfile(ctx, admin, identity.NewUser{Username: "deputy", Email: "deputy@example.com", Role: identity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, u.Profile.Role)
}

func TestCreateUserWithProfile_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: ""})
	assert.ErrorIs(t, err, identity.ErrInvalidUserInput)

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "x", Email: "not-an-email"})
	assert.ErrorIs(t, err, identity.ErrInvalidUserInput)

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "x", Email: "x@example.com", Role: "ROOT"})
	assert.ErrorIs(t, err, identity.ErrInvalidUserInput)

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "noemail"})
	assert.ErrorIs(t, err, identity.ErrInvalidUserInput)
	assert.Contains(t, err.Error(), "email is required")

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: strings.Repeat("x", 151), Email: "x@example.com"})
	assert.ErrorIs(t, err, identity.ErrInvalidUserInput)

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: strings.Repeat("é", 150), Email: "e@example.com"})
	assert.NoError(t, err)

	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "dup", Email: "dup@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "dup", Email: "dup@example.com"})
	assert.ErrorIs(t, err, identity.ErrUsernameTaken)
}

func TestAdminOperations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	admin, err := svc.EnsureAdmin(ctx, "root", "root@example.com")
	require.NoError(t, err)

	again, err := svc.EnsureAdmin(ctx, "root", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	target, err := svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "carol", Email: "carol@example.com"})
	require.NoError(t, err)

	_, err = svc.ListUsers(ctx, target)
	assert.ErrorIs(t, err, identity.ErrForbidden)

	all, err := svc.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.UpdateUser(ctx, admin, target.ID, identity.UserUpdate{Username: "carol", Email: "carol@example.com", Role: identity.RoleOrganizer})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleOrganizer, updated.Profile.Role)
	assert.Equal(t, target.ID, updated.Profile.UserID)

	summary, err := svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, identity.Summary{TotalUsers: 2, TotalEvents: 7}, *summary)

	inv := &countingInvalidator{}
	svc.WithInvalidator(inv)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, admin.ID), identity.ErrInvalidUserInput)
	require.NoError(t, svc.DeleteUser(ctx, admin, target.ID))
	assert.Equal(t, 1, inv.calls)

	_, err = svc.GetUser(ctx, target.ID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestEnsureAdmin_RefusesNonAdminNameClash(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "root", Email: "root@example.com"})
	require.NoError(t, err)

	_, err = svc.EnsureAdmin(ctx, "root", "")
	assert.ErrorIs(t, err, identity.ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUserWithProfile(ctx, nil, identity.NewUser{Username: "dave", Email: "dave@example.com"})
	require.NoError(t, err)

	token, err := svc.IssueToken(ctx, u.ID)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, identity.ErrUnauthorized)

	stored, _ := users.GetUser(ctx, u.ID)
	stored.IsActive = false
	require.NoError(t, users.UpdateUser(ctx, *stored))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, identity.ErrUnauthorized)
}
