package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campfire-chat/campfire-backend/internal/handlers"
	"github.com/campfire-chat/campfire-backend/internal/middleware"
)

func SetupRoutes(r *chi.Mux) {
	r.NotFound(handlers.NotFound)

	// Anonymous surface
	r.Get("/", handlers.Landing)
	r.Post("/login", handlers.Login)
	r.Post("/register", handlers.Register)
	r.Get("/auth/github", handlers.GitHubBegin)
	r.Get("/auth/github/callback", handlers.GitHubCallback)

	// Privileged pages behind the auth guard
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth)
		pr.Get("/chat", handlers.Chat)
		pr.Get("/profile", handlers.Profile)
		pr.Post("/profile/photo", handlers.UploadAvatar)
		pr.Get("/logout", handlers.Logout)
	})

	// Realtime channel; does its own cookie handshake
	r.Get("/ws", handlers.ChatWebSocket)

	// Static assets
	r.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir("public"))))
}
