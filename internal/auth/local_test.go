package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-chat/campfire-backend/internal/models"
	"github.com/campfire-chat/campfire-backend/pkg/utils"
)

type fakeUserFinder struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUserFinder) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func TestLocalAuthenticate_Success(t *testing.T) {
	hash, err := utils.HashPassword("pw1")
	require.NoError(t, err)

	strategy := NewLocal(&fakeUserFinder{users: map[string]*models.User{
		"alice": {ID: "1", Username: "alice", Password: hash},
	}})

	user, err := strategy.Authenticate(context.Background(), Credentials{Username: "Alice", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestLocalAuthenticate_WrongPassword(t *testing.T) {
	hash, err := utils.HashPassword("pw1")
	require.NoError(t, err)

	strategy := NewLocal(&fakeUserFinder{users: map[string]*models.User{
		"alice": {ID: "1", Username: "alice", Password: hash},
	}})

	_, err = strategy.Authenticate(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestLocalAuthenticate_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	strategy := NewLocal(&fakeUserFinder{users: map[string]*models.User{}})

	_, err := strategy.Authenticate(context.Background(), Credentials{Username: "nobody", Password: "pw"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestLocalAuthenticate_BackendError(t *testing.T) {
	backendErr := errors.New("store unreachable")
	strategy := NewLocal(&fakeUserFinder{err: backendErr})

	_, err := strategy.Authenticate(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, backendErr)
}

func TestLocalAuthenticate_MalformedStoredHashIsRejection(t *testing.T) {
	strategy := NewLocal(&fakeUserFinder{users: map[string]*models.User{
		"alice": {ID: "1", Username: "alice", Password: "plaintext-oops"},
	}})

	_, err := strategy.Authenticate(context.Background(), Credentials{Username: "alice", Password: "plaintext-oops"})
	assert.ErrorIs(t, err, ErrRejected)
}
