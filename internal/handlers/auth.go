package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campfire-chat/campfire-backend/internal/auth"
	"github.com/campfire-chat/campfire-backend/internal/models"
	"github.com/campfire-chat/campfire-backend/pkg/utils"
)

// Login authenticates a username/password submission. Rejections redirect
// back to the landing page without saying which check failed; only a backend
// failure gets the generic error page.
func Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	user, err := deps.Local.Authenticate(r.Context(), auth.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	if errors.Is(err, auth.ErrRejected) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		log.Printf("login failed: %v", err)
		renderError(w, "Unable to login")
		return
	}

	if err := establishSession(w, r, user, "local"); err != nil {
		log.Printf("login session failed: %v", err)
		renderError(w, "Unable to login")
		return
	}

	http.Redirect(w, r, "/profile", http.StatusFound)
}

// Register creates a local account and immediately runs it through the
// normal login flow. A taken username and a store failure both redirect to
// the landing page; the logs tell them apart but the response does not, so
// the endpoint cannot be used to enumerate usernames.
func Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	username := utils.NormalizeUsername(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if err := utils.ValidateUsername(username); err != nil || password == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	existing, err := deps.Users.FindByUsername(r.Context(), username)
	if err != nil {
		log.Printf("register lookup failed: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if existing != nil {
		log.Printf("register: username %q already taken", username)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("register hash failed: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := deps.Users.Insert(r.Context(), &models.User{Username: username, Password: hash}); err != nil {
		log.Printf("register insert failed: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// Same flow as a normal login so the session is established identically.
	user, err := deps.Local.Authenticate(r.Context(), auth.Credentials{Username: username, Password: password})
	if err != nil {
		log.Printf("register authenticate failed: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := establishSession(w, r, user, "register"); err != nil {
		log.Printf("register session failed: %v", err)
		renderError(w, "Unable to login")
		return
	}

	http.Redirect(w, r, "/profile", http.StatusFound)
}

// Logout destroys the session and clears the cookie.
func Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := sessionToken(r); ok {
		if err := deps.Sessions.Destroy(r.Context(), token); err != nil {
			log.Printf("logout: destroy session failed: %v", err)
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// GitHubBegin starts the OAuth handshake. The state parameter is echoed back
// by GitHub and checked against a short-lived cookie in the callback.
func GitHubBegin(w http.ResponseWriter, r *http.Request) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		log.Printf("github begin: state generation failed: %v", err)
		renderError(w, "Unable to login")
		return
	}
	state := hex.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, deps.GitHub.AuthCodeURL(state), http.StatusFound)
}

// GitHubCallback completes the handshake: verify state, exchange the code,
// upsert the account, establish the session, and land on the chat page.
func GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	user, err := deps.GitHub.Authenticate(r.Context(), auth.Credentials{Code: r.URL.Query().Get("code")})
	if errors.Is(err, auth.ErrRejected) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		log.Printf("github callback failed: %v", err)
		renderError(w, "Unable to login")
		return
	}

	if err := establishSession(w, r, user, "github"); err != nil {
		log.Printf("github session failed: %v", err)
		renderError(w, "Unable to login")
		return
	}

	http.Redirect(w, r, "/chat", http.StatusFound)
}
