package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/campfire-chat/campfire-backend/internal/models"
)

type contextKey int

const userContextKey contextKey = 0

// UserFromContext returns the authenticated user attached by LoadUser, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// WithUser attaches a resolved user to the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserResolver turns a request's session cookie into a user record.
// (nil, nil) means the request is simply unauthenticated; an error means the
// session store or user store failed.
type UserResolver func(r *http.Request) (*models.User, error)

// LoadUser resolves the session on every request and attaches the user to
// the context. A resolver failure is logged and the request proceeds
// unauthenticated; it never aborts the pipeline.
func LoadUser(resolve UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolve(r)
			if err != nil {
				log.Printf("session deserialize failed: %v", err)
			}
			if user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth gates privileged pages. Requests without a resolved session
// identity are redirected to the anonymous landing page; the protected
// handler is never invoked.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
