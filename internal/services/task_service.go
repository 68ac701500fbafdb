package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/database"
	"github.com/isdelr/taskboard-be/internal/models"
)

// Board actions published to live subscribers of a project.
const (
	ActionTaskCreated = "task.created"
	ActionTaskUpdated = "task.updated"
	ActionTaskDeleted = "task.deleted"
)

// BoardNotifier fans task changes out to clients watching a project.
type BoardNotifier interface {
	NotifyProject(projectID, action string, payload any)
}

// CreateTaskInput carries the fields accepted when creating a task.
// Empty Status and Priority fall back to "todo" and "medium".
type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     string
}

// TaskPatch lists the fields to change; nil means "leave as is".
// A non-nil empty DueDate clears the due date.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	DueDate     *string
}

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	CreateTask(ctx context.Context, ownerID string, in CreateTaskInput) (models.Task, error)
	ListTasks(ctx context.Context, ownerID, projectID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, patch TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// TaskService provides business logic for task management. Every operation
// is authorized through the task's parent project.
type TaskService struct {
	db       *sql.DB
	events   EventRecorder
	notifier BoardNotifier
	now      func() time.Time
}

// NewTaskService creates a new TaskService. notifier may be nil.
func NewTaskService(db *sql.DB, events EventRecorder, notifier BoardNotifier) *TaskService {
	return &TaskService{db: db, events: events, notifier: notifier, now: utcNow}
}

// CreateTask creates a task in a project owned by ownerID.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, in CreateTaskInput) (models.Task, error) {
	const op = "services.CreateTask"

	in.Title = strings.TrimSpace(in.Title)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.Title == "" || in.ProjectID == "" {
		return models.Task{}, apperr.New(op, apperr.ErrValidation, "Title and projectId are required")
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := validateStatusPriority(op, in.Status, in.Priority); err != nil {
		return models.Task{}, err
	}
	dueDate, err := parseDueDate(op, in.DueDate)
	if err != nil {
		return models.Task{}, err
	}

	project, err := authorizeProject(ctx, s.db, ownerID, in.ProjectID)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task := models.Task{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     dueDate,
		ProjectID:   project.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, due_date, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		nullTime(task.DueDate), task.ProjectID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return models.Task{}, apperr.Internal(op, err)
	}

	recordEvent(ctx, s.events, ownerID, "task.create", fmt.Sprintf("Task '%s' created in '%s'.", task.Title, project.Name), project.ID)
	s.notify(project.ID, ActionTaskCreated, task)
	return task, nil
}

// ListTasks returns the tasks of a project owned by ownerID, newest first.
func (s *TaskService) ListTasks(ctx context.Context, ownerID, projectID string) ([]models.Task, error) {
	const op = "services.ListTasks"

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apperr.New(op, apperr.ErrValidation, "projectId query param is required")
	}
	if _, err := authorizeProject(ctx, s.db, ownerID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY created_at DESC, rowid DESC", projectID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(op, rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return tasks, nil
}

// UpdateTask applies patch to a task whose project ownerID owns.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, patch TaskPatch) (models.Task, error) {
	const op = "services.UpdateTask"

	var updated models.Task
	var project models.Project
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		task, p, err := authorizeTask(ctx, tx, ownerID, taskID)
		if err != nil {
			return err
		}
		project = p

		if err := applyPatch(op, &task, patch); err != nil {
			return err
		}
		task.UpdatedAt = s.now()

		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
			WHERE id = ?`,
			task.Title, task.Description, string(task.Status), string(task.Priority),
			nullTime(task.DueDate), task.UpdatedAt, task.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return apperr.Internal(op, err)
		} else if n == 0 {
			return errTaskNotFound(op)
		}
		updated = task
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}

	recordEvent(ctx, s.events, ownerID, "task.update", fmt.Sprintf("Task '%s' updated.", updated.Title), project.ID)
	s.notify(project.ID, ActionTaskUpdated, updated)
	return updated, nil
}

// DeleteTask removes a task whose project ownerID owns.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	const op = "services.DeleteTask"

	var deleted models.Task
	var project models.Project
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		task, p, err := authorizeTask(ctx, tx, ownerID, taskID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", task.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return apperr.Internal(op, err)
		} else if n == 0 {
			return errTaskNotFound(op)
		}
		deleted, project = task, p
		return nil
	})
	if err != nil {
		return err
	}

	recordEvent(ctx, s.events, ownerID, "task.delete", fmt.Sprintf("Task '%s' deleted.", deleted.Title), project.ID)
	s.notify(project.ID, ActionTaskDeleted, map[string]string{"id": deleted.ID, "project": project.ID})
	return nil
}

func (s *TaskService) notify(projectID, action string, payload any) {
	if s.notifier != nil {
		s.notifier.NotifyProject(projectID, action, payload)
	}
}

func applyPatch(op string, task *models.Task, patch TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return apperr.New(op, apperr.ErrValidation, "Title cannot be empty")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if err := validateStatusPriority(op, task.Status, task.Priority); err != nil {
		return err
	}
	if patch.DueDate != nil {
		d, err := parseDueDate(op, *patch.DueDate)
		if err != nil {
			return err
		}
		task.DueDate = d
	}
	return nil
}

func validateStatusPriority(op string, status models.TaskStatus, priority models.TaskPriority) error {
	if !status.Valid() {
		return apperr.New(op, apperr.ErrValidation, "Status must be one of todo, in-progress, done")
	}
	if !priority.Valid() {
		return apperr.New(op, apperr.ErrValidation, "Priority must be one of low, medium, high")
	}
	return nil
}

func parseDueDate(op, s string) (*time.Time, error) {
	d, err := models.ParseDueDate(s)
	if err != nil {
		return nil, apperr.New(op, apperr.ErrValidation, "Due date must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return d, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
