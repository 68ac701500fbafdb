package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask_Defaults(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")

	task, err := env.tasks.CreateTask(context.Background(), alice.User.ID, CreateTaskInput{
		ProjectID: p.ID,
		Title:     " Design mock ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Design mock", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, p.ID, task.ProjectID)
	assert.Equal(t, []string{ActionTaskCreated}, env.board.actions())
}

func TestCreateTask_AllFields(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")

	task, err := env.tasks.CreateTask(context.Background(), alice.User.ID, CreateTaskInput{
		ProjectID:   p.ID,
		Title:       "Ship",
		Description: "launch it",
		Status:      models.StatusInProgress,
		Priority:    models.PriorityHigh,
		DueDate:     "2026-11-01",
	})
	require.NoError(t, err)

	list, err := env.tasks.ListTasks(context.Background(), alice.User.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "launch it", got.Description)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreateTask_Validation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")
	ctx := context.Background()

	inputs := []CreateTaskInput{
		{ProjectID: p.ID},
		{Title: "x"},
		{ProjectID: p.ID, Title: "x", Status: "blocked"},
		{ProjectID: p.ID, Title: "x", Priority: "urgent"},
		{ProjectID: p.ID, Title: "x", DueDate: "someday"},
	}
	for _, in := range inputs {
		_, err := env.tasks.CreateTask(ctx, alice.User.ID, in)
		require.ErrorIs(t, err, apperr.ErrValidation, in)
	}
	assert.Equal(t, 0, countRows(t, env.db, "tasks"))
}

func TestCreateTask_ForeignProjectPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	p := env.project(t, alice.User.ID, "Website")

	_, err := env.tasks.CreateTask(context.Background(), bob.User.ID, CreateTaskInput{ProjectID: p.ID, Title: "sneaky"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, countRows(t, env.db, "tasks"))
	assert.Empty(t, env.board.actions())
}

func TestListTasks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	p := env.project(t, alice.User.ID, "Website")
	other := env.project(t, alice.User.ID, "Other")
	ctx := context.Background()

	older := env.task(t, alice.User.ID, p.ID, "older")
	newer := env.task(t, alice.User.ID, p.ID, "newer")
	env.task(t, alice.User.ID, other.ID, "elsewhere")

	list, err := env.tasks.ListTasks(ctx, alice.User.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	_, err = env.tasks.ListTasks(ctx, bob.User.ID, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.tasks.ListTasks(ctx, alice.User.ID, "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateTask_PartialFields(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")
	task := env.task(t, alice.User.ID, p.ID, "Design mock")
	ctx := context.Background()

	updated, err := env.tasks.UpdateTask(ctx, alice.User.ID, task.ID, TaskPatch{
		Status:  ptr(models.StatusDone),
		DueDate: ptr("2026-12-24"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Design mock", updated.Title)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, models.PriorityMedium, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	cleared, err := env.tasks.UpdateTask(ctx, alice.User.ID, task.ID, TaskPatch{DueDate: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
	assert.Equal(t, models.StatusDone, cleared.Status)

	list, err := env.tasks.ListTasks(ctx, alice.User.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusDone, list[0].Status)
	assert.Nil(t, list[0].DueDate)

	assert.Equal(t, []string{ActionTaskCreated, ActionTaskUpdated, ActionTaskUpdated}, env.board.actions())
}

func TestUpdateTask_RejectsInvalidPatch(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")
	task := env.task(t, alice.User.ID, p.ID, "Design mock")
	ctx := context.Background()

	patches := []TaskPatch{
		{Title: ptr("  ")},
		{Status: ptr(models.TaskStatus("archived"))},
		{Priority: ptr(models.TaskPriority("critical"))},
		{DueDate: ptr("tomorrow")},
	}
	for _, patch := range patches {
		_, err := env.tasks.UpdateTask(ctx, alice.User.ID, task.ID, patch)
		require.ErrorIs(t, err, apperr.ErrValidation)
	}

	got, err := loadTask(ctx, env.db, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design mock", got.Title)
	assert.Equal(t, models.StatusTodo, got.Status)
}

func TestUpdateTask_ForeignOwnerLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	p := env.project(t, alice.User.ID, "Website")
	task := env.task(t, alice.User.ID, p.ID, "Design mock")
	ctx := context.Background()

	_, foreign := env.tasks.UpdateTask(ctx, bob.User.ID, task.ID, TaskPatch{Title: ptr("pwned")})
	_, missing := env.tasks.UpdateTask(ctx, bob.User.ID, "no-such-task", TaskPatch{Title: ptr("pwned")})

	require.ErrorIs(t, foreign, apperr.ErrNotFound)
	require.ErrorIs(t, missing, apperr.ErrNotFound)
	assert.Equal(t, apperr.Message(missing), apperr.Message(foreign))

	got, err := loadTask(ctx, env.db, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design mock", got.Title)
}

func TestDeleteTask_Twice(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")
	keep := env.task(t, alice.User.ID, p.ID, "keep")
	drop := env.task(t, alice.User.ID, p.ID, "drop")
	ctx := context.Background()

	require.NoError(t, env.tasks.DeleteTask(ctx, alice.User.ID, drop.ID))

	err := env.tasks.DeleteTask(ctx, alice.User.ID, drop.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := env.tasks.ListTasks(ctx, alice.User.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	assert.Equal(t, []string{ActionTaskCreated, ActionTaskCreated, ActionTaskDeleted}, env.board.actions())
}

func TestDeleteTask_ForeignOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	p := env.project(t, alice.User.ID, "Website")
	task := env.task(t, alice.User.ID, p.ID, "Design mock")

	err := env.tasks.DeleteTask(context.Background(), bob.User.ID, task.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, countRows(t, env.db, "tasks"))
}

func TestTaskLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Register(ctx, "Alice", "alice@x.com", "secret1")
	require.NoError(t, err)
	login, err := env.users.Login(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	ownerID, err := env.tokens.Verify(login.Token)
	require.NoError(t, err)

	p, err := env.projects.CreateProject(ctx, ownerID, "Website", "")
	require.NoError(t, err)

	task, err := env.tasks.CreateTask(ctx, ownerID, CreateTaskInput{ProjectID: p.ID, Title: "Design mock"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	_, err = env.tasks.UpdateTask(ctx, ownerID, task.ID, TaskPatch{Status: ptr(models.StatusDone)})
	require.NoError(t, err)

	list, err := env.tasks.ListTasks(ctx, ownerID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusDone, list[0].Status)

	events, err := env.events.GetRecentEvents(ctx, ownerID, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"task.update", "task.create", "project.create"}, types)
}

func TestTaskMutations_ConcurrentOnDistinctTasks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	p := env.project(t, alice.User.ID, "Website")
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	for i := range ids {
		ids[i] = env.task(t, alice.User.ID, p.ID, "task").ID
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.tasks.UpdateTask(ctx, alice.User.ID, ids[i], TaskPatch{Status: ptr(models.StatusDone)})
		}(i)
		go func(i int) {
			defer wg.Done()
			<-start
			extra, err := env.tasks.CreateTask(ctx, alice.User.ID, CreateTaskInput{ProjectID: p.ID, Title: "extra"})
			if err == nil {
				err = env.tasks.DeleteTask(ctx, alice.User.ID, extra.ID)
			}
			errs[n+i] = err
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	list, err := env.tasks.ListTasks(ctx, alice.User.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, list, n)
	for _, task := range list {
		assert.Equal(t, models.StatusDone, task.Status)
	}
}
