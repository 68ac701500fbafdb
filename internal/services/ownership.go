package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/database"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Ownership is resolved explicitly in two steps. Projects carry an owner;
// tasks do not, so a task is owned by whoever owns its project. A resource
// owned by someone else is reported exactly like a missing one.

func errProjectNotFound(op string) error {
	return apperr.New(op, apperr.ErrNotFound, "Project not found")
}

func errTaskNotFound(op string) error {
	return apperr.New(op, apperr.ErrNotFound, "Task not found")
}

// authorizeProject loads projectID and confirms requesterID owns it.
func authorizeProject(ctx context.Context, db database.DBTX, requesterID, projectID string) (models.Project, error) {
	const op = "services.authorizeProject"

	if projectID == "" {
		return models.Project{}, errProjectNotFound(op)
	}
	project, err := loadProject(ctx, db, projectID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.Project{}, errProjectNotFound(op)
		}
		return models.Project{}, err
	}
	if project.OwnerID != requesterID {
		log.Debug().Str("user_id", requesterID).Str("project_id", projectID).Msg("Denied access to project owned by another user")
		return models.Project{}, errProjectNotFound(op)
	}
	return project, nil
}

// authorizeTask loads taskID, then its parent project, and confirms
// requesterID owns that project.
func authorizeTask(ctx context.Context, db database.DBTX, requesterID, taskID string) (models.Task, models.Project, error) {
	const op = "services.authorizeTask"

	if taskID == "" {
		return models.Task{}, models.Project{}, errTaskNotFound(op)
	}
	task, err := loadTask(ctx, db, taskID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.Task{}, models.Project{}, errTaskNotFound(op)
		}
		return models.Task{}, models.Project{}, err
	}
	if task.ProjectID == "" {
		log.Warn().Str("task_id", taskID).Msg("Task has no project reference")
		return models.Task{}, models.Project{}, errTaskNotFound(op)
	}

	project, err := loadProject(ctx, db, task.ProjectID)
	if err != nil {
		if apperr.IsNotFound(err) {
			log.Warn().Str("task_id", taskID).Str("project_id", task.ProjectID).Msg("Task references a missing project")
			return models.Task{}, models.Project{}, errTaskNotFound(op)
		}
		return models.Task{}, models.Project{}, err
	}
	if project.OwnerID != requesterID {
		log.Debug().Str("user_id", requesterID).Str("task_id", taskID).Msg("Denied access to task in project owned by another user")
		return models.Task{}, models.Project{}, errTaskNotFound(op)
	}
	return task, project, nil
}

const projectColumns = "id, name, description, owner_id, created_at, updated_at"

func loadProject(ctx context.Context, db database.DBTX, projectID string) (models.Project, error) {
	row := db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", projectID)
	return scanProject("services.loadProject", row)
}

func scanProject(op string, scanner interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	err := scanner.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, errProjectNotFound(op)
		}
		return models.Project{}, apperr.Internal(op, err)
	}
	return p, nil
}

const taskColumns = "id, title, description, status, priority, due_date, project_id, created_at, updated_at"

func loadTask(ctx context.Context, db database.DBTX, taskID string) (models.Task, error) {
	row := db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", taskID)
	return scanTask("services.loadTask", row)
}

func scanTask(op string, scanner interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var dueDate sql.NullTime
	var projectID sql.NullString
	err := scanner.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &dueDate, &projectID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, errTaskNotFound(op)
		}
		return models.Task{}, apperr.Internal(op, err)
	}
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		t.DueDate = &d
	}
	t.ProjectID = projectID.String
	return t, nil
}
