package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/taskboard-be/internal/services"
)

// ProjectHandler handles HTTP requests for the caller's projects.
type ProjectHandler struct {
	service services.ProjectServiceProvider
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service services.ProjectServiceProvider) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ProjectPayload defines the structure for project creation requests.
type ProjectPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles creating a project owned by the caller.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var payload ProjectPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	project, err := h.service.CreateProject(r.Context(), id.UserID, payload.Name, payload.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Project created successfully",
		"project": project,
	})
}

// GetAll lists the caller's projects, newest first.
func (h *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	projects, err := h.service.ListProjects(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": len(projects), "projects": projects})
}

// Get returns one of the caller's projects.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	project, err := h.service.GetProject(r.Context(), id.UserID, chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}
