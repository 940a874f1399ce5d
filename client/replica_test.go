package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ralsuliman/studysync-tasks/database"
)

func makeTask(id, title string) database.Task {
	now := time.Now().UTC()
	return database.Task{
		ID:        id,
		OwnerID:   "user-1",
		Title:     title,
		Priority:  database.PriorityMedium,
		Course:    "CS335",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestReplica_SnapshotLifecycle(t *testing.T) {
	r := NewReplica()
	assert.Equal(t, StateDisconnected, r.State())

	r.Load([]database.Task{makeTask("a", "one"), makeTask("b", "two")})
	assert.Equal(t, StateSynced, r.State())
	assert.Equal(t, 2, r.Len())

	r.Reset()
	assert.Equal(t, StateDisconnected, r.State())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Tasks())
}

func TestReplica_IdempotentCreate(t *testing.T) {
	r := NewReplica()
	r.Load(nil)

	created := makeTask("a", "one")
	r.ApplyCreated(created)

	// The broadcast echo of the client's own create arrives second and
	// must not duplicate the entry.
	echo := created
	echo.Title = "stale echo"
	r.ApplyCreated(echo)

	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "one", tasks[0].Title)
}

func TestReplica_IdempotentUpdate(t *testing.T) {
	r := NewReplica()
	r.Load([]database.Task{makeTask("a", "one")})

	updated := makeTask("a", "renamed")
	r.ApplyUpdated(updated)
	r.ApplyUpdated(updated)

	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "renamed", tasks[0].Title)
}

func TestReplica_UpdateBeforeCreate(t *testing.T) {
	r := NewReplica()
	r.Load(nil)

	// An update for an id the replica never saw upserts it.
	r.ApplyUpdated(makeTask("a", "surprise"))
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "surprise", got.Title)

	// The late created event is then a no-op.
	r.ApplyCreated(makeTask("a", "older title"))
	got, _ = r.Get("a")
	assert.Equal(t, "surprise", got.Title)
	assert.Equal(t, 1, r.Len())
}

func TestReplica_DeleteSemantics(t *testing.T) {
	r := NewReplica()
	r.Load([]database.Task{makeTask("a", "one"), makeTask("b", "two")})

	r.ApplyDeleted("a")
	assert.Equal(t, 1, r.Len())
	_, ok := r.Get("a")
	assert.False(t, ok)

	// Deleting an id the replica never held is a silent no-op.
	r.ApplyDeleted("never-seen")
	assert.Equal(t, 1, r.Len())

	// So is deleting the same id twice.
	r.ApplyDeleted("a")
	assert.Equal(t, 1, r.Len())
}

func TestReplica_InsertionOrderPreserved(t *testing.T) {
	r := NewReplica()
	r.Load([]database.Task{makeTask("a", "one"), makeTask("b", "two")})
	r.ApplyCreated(makeTask("c", "three"))
	r.ApplyUpdated(makeTask("b", "two renamed"))

	tasks := r.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
	assert.Equal(t, "two renamed", tasks[1].Title)
	assert.Equal(t, "c", tasks[2].ID)
}
