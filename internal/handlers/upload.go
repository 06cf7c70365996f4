package handlers

import (
	"log"
	"net/http"

	"github.com/campfire-chat/campfire-backend/internal/middleware"
)

// UploadAvatar stores a new profile photo via Cloudinary and updates the
// user record. Only reachable behind the auth guard.
func UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if deps.Avatars == nil {
		http.Error(w, "Avatar uploads are not available", http.StatusServiceUnavailable)
		return
	}

	// Max 10MB
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := deps.Avatars.UploadAvatarFromHeader(r.Context(), fileHeader)
	if err != nil {
		log.Printf("avatar upload failed: %v", err)
		renderError(w, "Unable to upload photo")
		return
	}

	if err := deps.Users.SetPhoto(r.Context(), user.ID, url); err != nil {
		log.Printf("avatar update failed: %v", err)
		renderError(w, "Unable to upload photo")
		return
	}

	http.Redirect(w, r, "/profile", http.StatusFound)
}
