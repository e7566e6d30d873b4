package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

const maxNameLength = 100

// GetProfileHandler godoc
// @Summary Get the caller's profile
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 404 {string} string "User not found"
// @Router /me [get]
func GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	user, err := userRepo.GetByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Error("get profile failed", zap.String("user_id", id.UserID), zap.Error(err))
		http.Error(w, "could not fetch profile", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, toProfileResponse(user))
}

// UpdateProfileHandler godoc
// @Summary Change the caller's display name
// @Description The name is printed as the customer name on later receipts.
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "New display name"
// @Success 200 {object} ProfileResponse
// @Failure 400 {string} string "Invalid name"
// @Failure 404 {string} string "User not found"
// @Router /me [patch]
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if len(name) > maxNameLength {
		http.Error(w, "name is too long", http.StatusBadRequest)
		return
	}

	id, _ := identity(r)
	user, err := userRepo.UpdateName(r.Context(), id.UserID, name)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Error("update profile failed", zap.String("user_id", id.UserID), zap.Error(err))
		http.Error(w, "could not update profile", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, toProfileResponse(user))
}
