package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxd/pkg/store"
)

func openTemp(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func TestRegisterLoginLogout(t *testing.T) {
	openTemp(t)
	p := NewLocalProvider()

	require.NoError(t, p.Register("alice@example.com", "hunter2"))

	u, err := p.Login("alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Username)

	// login survives as the persisted current user
	cur, err := p.Current()
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "alice@example.com", cur.Username)

	require.NoError(t, p.Logout())
	cur, err = p.Current()
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestRegisterDuplicate(t *testing.T) {
	openTemp(t)
	p := NewLocalProvider()

	require.NoError(t, p.Register("alice@example.com", "hunter2"))
	err := p.Register("alice@example.com", "other")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginRejections(t *testing.T) {
	openTemp(t)
	p := NewLocalProvider()
	require.NoError(t, p.Register("alice@example.com", "hunter2"))

	_, err := p.Login("alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// unknown users get the same error as wrong passwords
	_, err = p.Login("nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordsStoredHashed(t *testing.T) {
	openTemp(t)
	p := NewLocalProvider()
	require.NoError(t, p.Register("alice@example.com", "hunter2"))

	users, err := store.LoadUsers()
	require.NoError(t, err)
	rec := users["alice@example.com"]
	assert.NotEqual(t, "hunter2", rec.PasswordHash)
	assert.NotContains(t, rec.PasswordHash, "hunter2")
}
