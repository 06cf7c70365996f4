package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campfire-chat/campfire-backend/internal/database"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionManager stores sessions in Redis, keyed by an opaque random token.
// The session value is only the user id, never the profile or credential.
type SessionManager struct{}

func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Create makes a new session for a user. Any existing session for the same
// user is invalidated first so the 7-day timer resets from this login.
// Returns the session token.
func (m *SessionManager) Create(ctx context.Context, userID string) (string, error) {
	m.destroyForUser(ctx, userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := database.RedisClient.Set(ctx, SessionKeyPrefix+token, userID, SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := database.RedisClient.Set(ctx, UserSessionKeyPrefix+userID, token, SessionDuration).Err(); err != nil {
		return "", err
	}

	return token, nil
}

// UserID resolves a session token to its user id. The second return is false
// when the token is unknown or expired; a non-nil error means Redis itself
// failed and the caller should treat it as a backend error, not a rejection.
func (m *SessionManager) UserID(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	userID, err := database.RedisClient.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return userID, true, nil
}

// Destroy removes a session from Redis.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	userID, err := database.RedisClient.Get(ctx, SessionKeyPrefix+token).Result()
	if err == nil && userID != "" {
		database.RedisClient.Del(ctx, UserSessionKeyPrefix+userID)
	}

	return database.RedisClient.Del(ctx, SessionKeyPrefix+token).Err()
}

func (m *SessionManager) destroyForUser(ctx context.Context, userID string) {
	token, err := database.RedisClient.Get(ctx, UserSessionKeyPrefix+userID).Result()
	if err == nil && token != "" {
		database.RedisClient.Del(ctx, SessionKeyPrefix+token)
	}
	database.RedisClient.Del(ctx, UserSessionKeyPrefix+userID)
}

// SignSessionValue produces the cookie value for a token: the token plus an
// HMAC-SHA256 tag under the session secret. The tag only proves the cookie
// came from us; the token itself is what Redis resolves.
func SignSessionValue(token, secret string) string {
	return token + "." + signature(token, secret)
}

// ParseSignedValue verifies a cookie value and returns the embedded token.
// Tampered or malformed values are reported as absent, never as errors.
func ParseSignedValue(value, secret string) (string, bool) {
	idx := strings.LastIndex(value, ".")
	if idx <= 0 || idx == len(value)-1 {
		return "", false
	}
	token, tag := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(tag), []byte(signature(token, secret))) {
		return "", false
	}
	return token, true
}

func signature(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
