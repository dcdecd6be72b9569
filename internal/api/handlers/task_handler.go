package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/taskforge/taskforge-be/internal/apperr"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/services"
	"github.com/taskforge/taskforge-be/internal/webutil"
)

// TaskHandler handles HTTP requests for task management.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// CreateTaskPayload defines the structure for task creation requests.
type CreateTaskPayload struct {
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

// Create handles task creation for the authenticated user.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var payload CreateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		webutil.RespondErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	completed := false
	if payload.Completed != nil {
		completed = *payload.Completed
	}

	task, err := h.service.CreateTask(r.Context(), user.ID, payload.Description, completed)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to create task")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusCreated, task)
}

// List returns the authenticated user's tasks, refined by the completed
// filter, pagination and sorting query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		webutil.RespondError(w, err)
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), user.ID, opts)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list tasks")
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, tasks)
}

// Get handles retrieving one of the authenticated user's tasks by id.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	task, err := h.service.GetTask(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, task)
}

// Update applies a partial update to one of the authenticated user's tasks.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	task, err := h.service.UpdateTask(r.Context(), user.ID, chi.URLParam(r, "id"), fields)
	if err != nil {
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, task)
}

// Delete removes one of the authenticated user's tasks and returns it.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		webutil.RespondErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	task, err := h.service.DeleteTask(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		webutil.RespondError(w, err)
		return
	}
	webutil.RespondJSON(w, http.StatusOK, task)
}

// parseListOptions reads the list refinements from the query string. Absent
// parameters mean "no constraint"; malformed ones are a validation error.
func parseListOptions(r *http.Request) (services.TaskListOptions, error) {
	opts := services.TaskListOptions{Limit: -1}
	query := r.URL.Query()

	if v := query.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperr.ErrValidation("invalid completed parameter")
		}
		opts.Completed = &completed
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return opts, apperr.ErrValidation("invalid limit parameter")
		}
		opts.Limit = limit
	}
	if v := query.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return opts, apperr.ErrValidation("invalid skip parameter")
		}
		opts.Skip = skip
	}
	opts.SortBy = query.Get("sortBy")

	return opts, nil
}
