package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/models"
)

// ProjectServiceProvider defines the interface for project services.
type ProjectServiceProvider interface {
	CreateProject(ctx context.Context, ownerID, name, description string) (models.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	GetProject(ctx context.Context, ownerID, projectID string) (models.Project, error)
}

// ProjectService provides business logic for project management.
type ProjectService struct {
	db     *sql.DB
	events EventRecorder
	now    func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(db *sql.DB, events EventRecorder) *ProjectService {
	return &ProjectService{db: db, events: events, now: utcNow}
}

// CreateProject creates a project owned by ownerID.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID, name, description string) (models.Project, error) {
	const op = "services.CreateProject"

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, apperr.New(op, apperr.ErrValidation, "Project name is required")
	}

	now := s.now()
	project := models.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, description, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		project.ID, project.Name, project.Description, project.OwnerID, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return models.Project{}, apperr.Internal(op, err)
	}

	recordEvent(ctx, s.events, ownerID, "project.create", fmt.Sprintf("Project '%s' created.", project.Name), project.ID)
	return project, nil
}

// ListProjects returns ownerID's projects, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	const op = "services.ListProjects"

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC", ownerID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(op, rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return projects, nil
}

// GetProject returns a project only if ownerID owns it.
func (s *ProjectService) GetProject(ctx context.Context, ownerID, projectID string) (models.Project, error) {
	return authorizeProject(ctx, s.db, ownerID, projectID)
}
