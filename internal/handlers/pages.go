package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/campfire-chat/campfire-backend/internal/middleware"
	"github.com/campfire-chat/campfire-backend/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Title   string
	Message string
	User    *models.User
}

func render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("render %s failed: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func renderError(w http.ResponseWriter, message string) {
	render(w, http.StatusInternalServerError, "error.html", pageData{Title: "Campfire", Message: message})
}

// Landing renders the anonymous landing page with the login and
// registration forms.
func Landing(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, "landing.html", pageData{Title: "Campfire", Message: "Please login"})
}

// Chat renders the chat room page for the authenticated user.
func Chat(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	render(w, http.StatusOK, "chat.html", pageData{Title: "Campfire Chat", User: user})
}

// Profile renders the authenticated user's profile page.
func Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	render(w, http.StatusOK, "profile.html", pageData{Title: "Profile", User: user})
}

// NotFound answers every unmatched route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found"))
}

// Degraded renders the single error page served on every path when a
// startup database connection failed.
func Degraded(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderError(w, message)
	}
}
