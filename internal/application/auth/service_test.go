package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/exewatch/internal/auth"
	"github.com/bryanwahyu/exewatch/internal/common"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService([]byte("test-secret"), time.Hour, "admin", "admin")
	require.NoError(t, err)
	return svc
}

func TestLogin_Success(t *testing.T) {
	svc := newTestService(t)

	token, user, err := svc.Login("admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "demo-user-1", user.ID)
	assert.Equal(t, "admin", user.Username)

	// the minted token must carry the user identity
	userID, err := auth.GetUserIDFromToken(token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "demo-user-1", userID)
}

func TestLogin_MissingCredentials(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login("", "admin")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = svc.Login("admin", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_WrongUsername(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login("root", "admin")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login("admin", "hunter2")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
