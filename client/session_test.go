package client

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ralsuliman/studysync-tasks/database"
	"github.com/Ralsuliman/studysync-tasks/handlers"
	"github.com/Ralsuliman/studysync-tasks/services"
)

type testServer struct {
	*httptest.Server
	users *database.UserStore
	auth  *services.AuthService
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop().Sugar()
	hub := services.NewHub(log)
	go hub.Run()

	userStore := database.NewUserStore(db)
	taskStore := database.NewTaskStore(db, []string{"CS335", "CS101", "IT202"}, hub)
	authService := services.NewAuthService(userStore, services.NewMailer(services.SMTPConfig{}, log),
		"test-secret", time.Hour, "http://localhost:8080", log)

	router := handlers.NewRouter(
		handlers.NewAuthHandler(authService, log),
		handlers.NewTaskHandler(taskStore, authService, hub, false, log),
		handlers.NewAuthMiddleware(authService),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, users: userStore, auth: authService}
}

// startSession registers a fresh account, verifies it through the
// store (standing in for the emailed link), logs in, and runs a synced
// session against the server.
func startSession(t *testing.T, server *testServer, email string) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	api := NewAPI(server.URL)
	require.NoError(t, api.Register(ctx, "Session User", email, "hunter22"))

	user, found, err := server.users.GetUserByEmail(email)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, server.auth.VerifyEmail(user.VerificationToken))
	require.NoError(t, api.Login(ctx, email, "hunter22"))

	session := NewSession(api, server.URL, zap.NewNop().Sugar(), nil)
	go session.Run(ctx)

	waitFor(t, func() bool { return session.Replica().State() == StateSynced })
	return session
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestSession_TwoClientConvergence(t *testing.T) {
	server := startTestServer(t)
	alice := startSession(t, server, "alice@example.com")
	bob := startSession(t, server, "bob@example.com")

	ctx := context.Background()
	created, err := alice.Create(ctx, database.TaskFields{
		Title:    "Lab 3",
		Course:   "CS335",
		Priority: database.PriorityHigh,
	})
	require.NoError(t, err)
	assert.False(t, created.Completed)

	// Bob's replica receives the broadcast copy of the same record.
	waitFor(t, func() bool { return bob.Replica().Len() == 1 })
	got, ok := bob.Replica().Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)

	// Alice applied her own create through both the REST response and
	// the broadcast echo; the replica still holds exactly one copy.
	waitFor(t, func() bool { return bob.Replica().Len() == 1 })
	assert.Equal(t, 1, alice.Replica().Len())

	// An update converges too.
	completed := true
	_, err = bob.Update(ctx, created.ID, database.TaskPatch{Completed: &completed})
	require.NoError(t, err)
	waitFor(t, func() bool {
		task, ok := alice.Replica().Get(created.ID)
		return ok && task.Completed
	})

	// Delete removes it everywhere; replicas that never held the id
	// ignore the event.
	require.NoError(t, alice.Delete(ctx, created.ID))
	waitFor(t, func() bool { return bob.Replica().Len() == 0 })
	assert.Equal(t, 0, alice.Replica().Len())
}

func TestSession_RejectedMutationLeavesReplicaUnchanged(t *testing.T) {
	server := startTestServer(t)
	session := startSession(t, server, "carol@example.com")

	ctx := context.Background()
	_, err := session.Create(ctx, database.TaskFields{Title: "   "})
	var validationErr *database.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, session.Replica().Len())

	_, err = session.Update(ctx, "no-such-id", database.TaskPatch{})
	assert.ErrorIs(t, err, database.ErrNotFound)

	err = session.Delete(ctx, "no-such-id")
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Equal(t, 0, session.Replica().Len())
}

func TestSession_UnauthorizedWithoutToken(t *testing.T) {
	server := startTestServer(t)

	api := NewAPI(server.URL)
	_, err := api.ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
