package handlers

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/campfire-chat/campfire-backend/internal/auth"
	"github.com/campfire-chat/campfire-backend/internal/models"
	"github.com/campfire-chat/campfire-backend/internal/services"
	"github.com/campfire-chat/campfire-backend/pkg/clientip"
)

// SessionCookieName is the session cookie. Its value is the signed token.
const SessionCookieName = "campfire_sid"

const stateCookieName = "campfire_oauth_state"

// UserStore is what the handlers need from the credential store.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	SetPhoto(ctx context.Context, id, url string) error
}

// SessionStore is what the handlers need from the session manager.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	UserID(ctx context.Context, token string) (string, bool, error)
	Destroy(ctx context.Context, token string) error
}

// GitHubStrategy is the external-identity strategy plus its authorize URL.
type GitHubStrategy interface {
	auth.Strategy
	AuthCodeURL(state string) string
}

// AuditRecorder records successful logins. Optional.
type AuditRecorder interface {
	RecordLogin(ctx context.Context, userID, strategy, ip, userAgent string) error
}

// AvatarUploader stores avatar images. Optional.
type AvatarUploader interface {
	UploadAvatarFromHeader(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
}

// Deps wires the handlers to their collaborators. Audit and Avatars may be
// nil; everything else is required.
type Deps struct {
	Users         UserStore
	Sessions      SessionStore
	Local         auth.Strategy
	GitHub        GitHubStrategy
	Hub           *services.ChatHub
	Audit         AuditRecorder
	Avatars       AvatarUploader
	SessionSecret string
}

var deps Deps

func Init(d Deps) {
	deps = d
}

// ResolveSessionUser turns the request's session cookie into a user record.
// Missing, tampered, expired, or orphaned sessions all yield (nil, nil):
// the request is simply unauthenticated. A non-nil error means the session
// store or user store failed.
func ResolveSessionUser(r *http.Request) (*models.User, error) {
	token, ok := sessionToken(r)
	if !ok {
		return nil, nil
	}

	userID, ok, err := deps.Sessions.UserID(r.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if !ok {
		return nil, nil
	}

	user, err := deps.Users.FindByID(r.Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("session user lookup: %w", err)
	}
	return user, nil
}

func sessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return services.ParseSignedValue(cookie.Value, deps.SessionSecret)
}

// establishSession creates a session for an authenticated user, sets the
// cookie, and records the login. Audit failures are logged, never fatal.
func establishSession(w http.ResponseWriter, r *http.Request, user *models.User, strategy string) error {
	token, err := deps.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    services.SignSessionValue(token, deps.SessionSecret),
		Path:     "/",
		MaxAge:   int(services.SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if deps.Audit != nil {
		ip := clientip.RealClientIP(r)
		if err := deps.Audit.RecordLogin(r.Context(), user.ID, strategy, ip, r.UserAgent()); err != nil {
			log.Printf("login audit failed: %v", err)
		}
	}

	return nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
