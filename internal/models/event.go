package models

import "time"

// Event represents an entry in a user's activity feed.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"`  // e.g., "project.create", "task.update"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	ProjectID *string   `json:"projectId,omitempty"` // Nullable for account-wide events
	CreatedAt time.Time `json:"createdAt"`
}
