package auth

import (
	"context"
	"fmt"

	"github.com/campfire-chat/campfire-backend/internal/models"
	"github.com/campfire-chat/campfire-backend/pkg/utils"
)

// Local authenticates username/password pairs against stored Argon2id hashes.
type Local struct {
	Users UserFinder
}

func NewLocal(users UserFinder) *Local {
	return &Local{Users: users}
}

func (s *Local) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	user, err := s.Users.FindByUsername(ctx, utils.NormalizeUsername(creds.Username))
	if err != nil {
		return nil, fmt.Errorf("local strategy lookup: %w", err)
	}
	if user == nil {
		return nil, ErrRejected
	}

	ok, err := utils.VerifyPassword(creds.Password, user.Password)
	if err != nil || !ok {
		// A malformed stored hash is treated the same as a mismatch.
		return nil, ErrRejected
	}

	return user, nil
}
