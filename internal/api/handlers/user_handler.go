package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/taskforge/taskforge-be/internal/apperr"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/services"
	"github.com/taskforge/taskforge-be/internal/webutil"
)

const maxAvatarSize = 1 << 20 // 1 MB

// avatarContentTypes are the accepted sniffed types for avatar uploads.
var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// SignupPayload defines the structure for registration requests.
type SignupPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.service.Signup(r.Context(), payload.Name, payload.Email, payload.Password, payload.Age)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to sign up user")
		webutil.RespondError(w, err)
		return
	}

	webutil.RespondJSON(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Login handles user authentication and token issuance. Bad credentials
// produce a 400 with a generic message so login cannot be used to probe
// which emails exist.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindAuth {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			webutil.RespondErrorMessage(w, http.StatusBadRequest, ae.Message)
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Login failed")
		webutil.RespondError(w, err)
		return
	}

	webutil.RespondJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Logout revokes exactly the token used for this request.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	token, tok := auth.TokenFromContext(r.Context())
	if !ok || !tok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.Logout(r.Context(), user.ID, token); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to log out user")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll revokes the user's entire token set.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.LogoutAll(r.Context(), user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to log out all sessions")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out everywhere"})
}

// GetMe returns the authenticated user's own profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	webutil.RespondJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial profile update.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateUser(r.Context(), user.ID, fields)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update user")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, updated)
}

// DeleteMe handles the permanent deletion of the authenticated account.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	deleted, err := h.service.DeleteUser(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to delete user")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, deleted)
}

// UploadAvatar stores an image from the multipart "avatar" field on the
// authenticated user. The whole file is buffered in memory, bounded by the
// size cap.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Allow some slack for the multipart framing around the 1 MB payload.
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+64*1024)

	file, _, err := r.FormFile("avatar")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			webutil.RespondErrorMessage(w, http.StatusBadRequest, "avatar must be 1 MB or smaller")
			return
		}
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "avatar must be 1 MB or smaller")
		return
	}
	if len(data) > maxAvatarSize {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "avatar must be 1 MB or smaller")
		return
	}

	// Trust the bytes, not the uploaded filename.
	contentType := http.DetectContentType(data)
	if !avatarContentTypes[contentType] {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "avatar must be a jpg, jpeg or png image")
		return
	}

	if err := h.service.SetAvatar(r.Context(), user.ID, data, contentType); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to store avatar")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, map[string]string{"message": "avatar uploaded"})
}

// DeleteAvatar clears the authenticated user's avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.ClearAvatar(r.Context(), user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to clear avatar")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, map[string]string{"message": "avatar deleted"})
}

// GetAvatar serves a user's avatar publicly by user id.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, contentType, err := h.service.GetAvatar(r.Context(), id)
	if err != nil {
		webutil.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
