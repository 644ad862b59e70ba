package cuentas

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderLoginAndSession(t *testing.T) {
	// Arrange
	provider := NewMemoryProvider(time.Hour)
	provider.Seed(User{ID: "u1", Email: "ana@pizzanova.dev", Name: "Ana", Role: RoleAdmin}, "secret")
	ctx := context.Background()

	// Act
	session, err := provider.Login(ctx, Credentials{Email: "ana@pizzanova.dev", Password: "secret"})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, RoleAdmin, session.User.Role)

	user, err := provider.Session(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestMemoryProviderRejectsBadCredentials(t *testing.T) {
	provider := NewMemoryProvider(time.Hour)
	provider.Seed(User{Email: "ana@pizzanova.dev"}, "secret")
	ctx := context.Background()

	_, err := provider.Login(ctx, Credentials{Email: "ana@pizzanova.dev", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = provider.Login(ctx, Credentials{Email: "nobody@pizzanova.dev", Password: "secret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryProviderLogoutInvalidatesToken(t *testing.T) {
	provider := NewMemoryProvider(time.Hour)
	provider.Seed(User{Email: "ana@pizzanova.dev"}, "secret")
	ctx := context.Background()

	session, err := provider.Login(ctx, Credentials{Email: "ana@pizzanova.dev", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, provider.Logout(ctx, session.AccessToken))

	_, err = provider.Session(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryProviderSessionExpiry(t *testing.T) {
	// Arrange: a clock we control
	provider := NewMemoryProvider(time.Minute)
	provider.Seed(User{Email: "ana@pizzanova.dev"}, "secret")
	now := time.Now()
	provider.now = func() time.Time { return now }
	ctx := context.Background()

	session, err := provider.Login(ctx, Credentials{Email: "ana@pizzanova.dev", Password: "secret"})
	require.NoError(t, err)

	// Act: jump past the TTL
	now = now.Add(2 * time.Minute)
	_, err = provider.Session(ctx, session.AccessToken)

	// Assert
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestMemoryProviderSignUp(t *testing.T) {
	provider := NewMemoryProvider(time.Hour)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, Credentials{Email: "new@pizzanova.dev", Password: "secret"}, "Nuevo")
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", user.Name)
	assert.Equal(t, RoleStaff, user.Role)

	_, err = provider.SignUp(ctx, Credentials{Email: "new@pizzanova.dev", Password: "other"}, "Nuevo")
	assert.ErrorIs(t, err, ErrUserExists)
}
