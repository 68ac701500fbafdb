package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/isdelr/taskboard-be/internal/services"
)

// TaskHandler handles HTTP requests for tasks. Access to a task always goes
// through its project's owner.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// CreateTaskPayload defines the structure for task creation requests.
type CreateTaskPayload struct {
	ProjectID   string              `json:"projectId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *string             `json:"dueDate"`
}

// UpdateTaskPayload lists the updatable fields. Absent fields are left as
// they are; "dueDate": null clears the due date.
type UpdateTaskPayload struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     json.RawMessage      `json:"dueDate"`
}

func (p UpdateTaskPayload) patch() (services.TaskPatch, bool) {
	patch := services.TaskPatch{
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
	}
	switch {
	case len(p.DueDate) == 0:
	case string(p.DueDate) == "null":
		patch.DueDate = new(string)
	default:
		var s string
		if err := json.Unmarshal(p.DueDate, &s); err != nil {
			return services.TaskPatch{}, false
		}
		patch.DueDate = &s
	}
	return patch, true
}

// Create handles creating a task in one of the caller's projects.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var payload CreateTaskPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	in := services.CreateTaskInput{
		ProjectID:   payload.ProjectID,
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
		Priority:    payload.Priority,
	}
	if payload.DueDate != nil {
		in.DueDate = *payload.DueDate
	}

	task, err := h.service.CreateTask(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Task created successfully",
		"task":    task,
	})
}

// GetAll lists the tasks of the project named by the projectId query param.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), id.UserID, r.URL.Query().Get("projectId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": len(tasks), "tasks": tasks})
}

// Update applies a partial update to a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var payload UpdateTaskPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	patch, ok := payload.patch()
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Due date must be a string or null")
		return
	}

	task, err := h.service.UpdateTask(r.Context(), id.UserID, chi.URLParam(r, "taskId"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(r.Context(), id.UserID, chi.URLParam(r, "taskId")); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Task deleted successfully")
}
