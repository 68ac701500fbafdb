package services

import (
	"context"
	"testing"

	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")

	p, err := env.projects.CreateProject(context.Background(), alice.User.ID, "  Website ", " marketing site ")
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Website", p.Name)
	assert.Equal(t, "marketing site", p.Description)
	assert.Equal(t, alice.User.ID, p.OwnerID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := env.projects.GetProject(context.Background(), alice.User.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateProject_NameRequired(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")

	_, err := env.projects.CreateProject(context.Background(), alice.User.ID, "   ", "desc")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Project name is required", apperr.Message(err))
	assert.Equal(t, 0, countRows(t, env.db, "projects"))
}

func TestListProjects_ScopedToOwnerNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")

	first := env.project(t, alice.User.ID, "First")
	second := env.project(t, alice.User.ID, "Second")
	env.project(t, bob.User.ID, "Bob's")

	list, err := env.projects.ListProjects(context.Background(), alice.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := env.projects.ListProjects(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetProject_OtherOwnerLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	p := env.project(t, alice.User.ID, "Website")
	ctx := context.Background()

	_, foreign := env.projects.GetProject(ctx, bob.User.ID, p.ID)
	_, missing := env.projects.GetProject(ctx, bob.User.ID, "does-not-exist")

	require.ErrorIs(t, foreign, apperr.ErrNotFound)
	require.ErrorIs(t, missing, apperr.ErrNotFound)
	assert.Equal(t, apperr.Message(missing), apperr.Message(foreign))
}

func TestCreateProject_RecordsEvent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")

	events, err := env.events.GetRecentEvents(context.Background(), alice.User.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "project.create", events[0].Type)
	require.NotNil(t, events[0].ProjectID)
	assert.Equal(t, p.ID, *events[0].ProjectID)
}
