package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// EventRecorder appends entries to a user's activity feed.
type EventRecorder interface {
	RecordEvent(ctx context.Context, userID, eventType, level, message string, projectID *string) error
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	EventRecorder
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// EventService provides business logic for the activity feed.
type EventService struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db, now: utcNow}
}

// RecordEvent logs a new event to the database.
func (s *EventService) RecordEvent(ctx context.Context, userID, eventType, level, message string, projectID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		Level:     level,
		Message:   message,
		ProjectID: projectID,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, user_id, type, level, message, project_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.UserID, event.Type, event.Level, event.Message, event.ProjectID, event.CreatedAt)
	if err != nil {
		return apperr.Internal("services.RecordEvent", err)
	}
	return nil
}

// GetRecentEvents retrieves the caller's most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	const op = "services.GetRecentEvents"

	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, level, message, project_id, created_at
		FROM events WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var projectID sql.NullString
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Level, &event.Message, &projectID, &event.CreatedAt); err != nil {
			return nil, apperr.Internal(op, err)
		}
		if projectID.Valid {
			event.ProjectID = &projectID.String
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return events, nil
}

// PruneEvents deletes events created before the cutoff and returns how many
// were removed.
func (s *EventService) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	const op = "services.PruneEvents"

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	return n, nil
}

// recordEvent is best-effort: a failed write is logged and never fails the
// operation that triggered it.
func recordEvent(ctx context.Context, events EventRecorder, userID, eventType, message string, projectID string) {
	if events == nil {
		return
	}
	var pid *string
	if projectID != "" {
		pid = &projectID
	}
	if err := events.RecordEvent(ctx, userID, eventType, "info", message, pid); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", eventType).Msg("Failed to record activity event")
	}
}
