package cuentas

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProvider implements Provider in memory. Used by tests and local
// development; never by a deployed service.
type MemoryProvider struct {
	mu       sync.Mutex
	users    map[string]memoryUser // by email
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memoryUser struct {
	user     User
	password string
}

type memorySession struct {
	user      User
	expiresAt time.Time
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	return &MemoryProvider{
		users:    make(map[string]memoryUser),
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seed registers a user directly, bypassing sign-up.
func (m *MemoryProvider) Seed(user User, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Email] = memoryUser{user: user, password: password}
}

// SignUp implements Provider.
func (m *MemoryProvider) SignUp(_ context.Context, creds Credentials, name string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[creds.Email]; exists {
		return User{}, ErrUserExists
	}
	user := User{
		ID:    uuid.NewString(),
		Email: creds.Email,
		Name:  name,
		Role:  RoleStaff,
	}
	m.users[creds.Email] = memoryUser{user: user, password: creds.Password}
	return user, nil
}

// Login implements Provider.
func (m *MemoryProvider) Login(_ context.Context, creds Credentials) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[creds.Email]
	if !ok || stored.password != creds.Password {
		return Session{}, ErrInvalidCredentials
	}

	token := uuid.NewString()
	expiresAt := m.now().Add(m.ttl)
	m.sessions[token] = memorySession{user: stored.user, expiresAt: expiresAt}

	return Session{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
		User:         stored.user,
	}, nil
}

// Logout implements Provider.
func (m *MemoryProvider) Logout(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accessToken)
	return nil
}

// Session implements Provider.
func (m *MemoryProvider) Session(_ context.Context, accessToken string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[accessToken]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if m.now().After(sess.expiresAt) {
		delete(m.sessions, accessToken)
		return User{}, ErrSessionExpired
	}
	return sess.user, nil
}
