package auth

import (
	"context"
	"errors"

	"github.com/campfire-chat/campfire-backend/internal/models"
)

// ErrRejected means the credentials did not check out: unknown username, bad
// password, or a failed provider handshake. Callers must not distinguish
// these cases in responses, so a username probe learns nothing.
var ErrRejected = errors.New("authentication rejected")

// Credentials carries the input for one authentication attempt. Local uses
// Username/Password; GitHub uses the OAuth authorization Code.
type Credentials struct {
	Username string
	Password string
	Code     string
}

// Strategy verifies credentials and returns the stored user record.
// Any error other than ErrRejected is a backend failure (store or provider
// unreachable) and should surface as a generic failure, not a redirect.
type Strategy interface {
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}

// UserFinder looks up a local account. A nil user with a nil error means the
// username is not registered.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// ExternalIdentity is a provider profile with defaults already applied,
// ready to be upserted by provider id.
type ExternalIdentity struct {
	ID       string
	Name     string
	Photo    string
	Email    string
	Provider string
}

// ExternalUpserter inserts or refreshes the record for an external identity
// and returns the post-upsert record. Profile fields are written only on
// first sight; last_login and login_count are refreshed on every call.
type ExternalUpserter interface {
	UpsertExternal(ctx context.Context, identity ExternalIdentity) (*models.User, error)
}
