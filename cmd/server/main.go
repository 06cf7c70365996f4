package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/campfire-chat/campfire-backend/internal/auth"
	"github.com/campfire-chat/campfire-backend/internal/config"
	"github.com/campfire-chat/campfire-backend/internal/database"
	"github.com/campfire-chat/campfire-backend/internal/handlers"
	"github.com/campfire-chat/campfire-backend/internal/middleware"
	"github.com/campfire-chat/campfire-backend/internal/routes"
	"github.com/campfire-chat/campfire-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if cfg.SessionSecret == "change-me-in-production" && cfg.IsProduction() {
		log.Println("⚠️  WARNING: SESSION_SECRET is the default value. Set a real secret in production.")
	}
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		log.Println("⚠️  WARNING: GitHub credentials not set. GitHub login will not work.")
	}

	// Connect to MongoDB (user records). If this fails the app degrades to a
	// single error page instead of crashing.
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Printf("Failed to connect to MongoDB: %v", err)
		serveDegraded(cfg)
		return
	}
	defer database.Disconnect()

	// Connect to Redis (sessions). Same degraded mode on failure: without a
	// session store nobody can log in anyway.
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		serveDegraded(cfg)
		return
	}
	defer database.DisconnectRedis()

	// Connect to PostgreSQL (login audit). Optional: the app runs without
	// the audit trail.
	log.Printf("Connecting to PostgreSQL...")
	var audit handlers.AuditRecorder
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL: %v", err)
		log.Println("Login audit trail will not be available")
	} else {
		defer database.DisconnectPostgres()
		audit = services.NewAuditService(database.PostgresDB)
	}

	userService := services.NewUserService()
	if err := userService.EnsureUserIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB user indexes: %v", err)
	} else {
		log.Println("✅ MongoDB user indexes ensured")
	}

	// Initialize Cloudinary service (optional)
	var avatars handlers.AvatarUploader
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Avatar uploads will not be available")
		} else {
			avatars = cld
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Avatar uploads will not be available")
	}

	handlers.Init(handlers.Deps{
		Users:    userService,
		Sessions: services.NewSessionManager(),
		Local:    auth.NewLocal(userService),
		GitHub: auth.NewGitHub(auth.GitHubConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			CallbackURL:  cfg.GitHubCallbackURL,
		}, userService),
		Hub:           services.NewChatHub(),
		Audit:         audit,
		Avatars:       avatars,
		SessionSecret: cfg.SessionSecret,
	})

	// Setup router
	r := chi.NewRouter()

	// Production: security headers + per-IP and login rate limiting.
	// Non-production: Redis-based rate limit only.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Resolve the session on every request
	r.Use(middleware.LoadUser(handlers.ResolveSessionUser))

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r)

	log.Printf("🚀 Campfire backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// serveDegraded answers every path with a static error page. Used when a
// startup database connection failed.
func serveDegraded(cfg *config.Config) {
	r := chi.NewRouter()
	r.NotFound(handlers.Degraded("Unable to login"))

	log.Printf("⚠️  Campfire backend running DEGRADED on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
