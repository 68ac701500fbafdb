package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/taskboard-be/internal/auth"
	"github.com/isdelr/taskboard-be/internal/database"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ---- helpers ----

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// stepClock returns a strictly increasing clock so ordering by created_at
// is deterministic.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

var testStart = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *sql.DB
	tokens   *auth.TokenManager
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
	events   *EventService
	board    *fakeBoard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager([]byte("test-secret"), 7*24*time.Hour, nil)
	require.NoError(t, err)

	clock := stepClock(testStart)
	board := &fakeBoard{}

	events := NewEventService(db)
	events.now = clock
	users := NewUserService(db, hasher, tokens)
	users.now = clock
	projects := NewProjectService(db, events)
	projects.now = clock
	tasks := NewTaskService(db, events, board)
	tasks.now = clock

	return &testEnv{db: db, tokens: tokens, users: users, projects: projects, tasks: tasks, events: events, board: board}
}

func (e *testEnv) register(t *testing.T, name, email string) AuthResult {
	t.Helper()
	res, err := e.users.Register(context.Background(), name, email, "secret1")
	require.NoError(t, err)
	return res
}

func (e *testEnv) project(t *testing.T, ownerID, name string) models.Project {
	t.Helper()
	p, err := e.projects.CreateProject(context.Background(), ownerID, name, "")
	require.NoError(t, err)
	return p
}

func (e *testEnv) task(t *testing.T, ownerID, projectID, title string) models.Task {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), ownerID, CreateTaskInput{ProjectID: projectID, Title: title})
	require.NoError(t, err)
	return task
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// ---- fakes ----

type boardCall struct {
	ProjectID string
	Action    string
	Payload   any
}

type fakeBoard struct {
	mu    sync.Mutex
	calls []boardCall
}

func (f *fakeBoard) NotifyProject(projectID, action string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, boardCall{ProjectID: projectID, Action: action, Payload: payload})
}

func (f *fakeBoard) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Action)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
