package client

import (
	"sync"

	"github.com/Ralsuliman/studysync-tasks/database"
)

// State tracks whether the replica mirrors the authoritative store.
type State int

const (
	// StateDisconnected means the replica holds nothing usable: it was
	// never synced, or the event channel was lost and the contents
	// were discarded.
	StateDisconnected State = iota
	// StateSynced means the replica was built from a snapshot and is
	// being kept current by applying events.
	StateSynced
)

// Replica is a client-local, insertion-ordered mirror of the shared
// task store. It is rebuilt from scratch on every (re)connect; events
// and the client's own mutation responses are merged in through the
// idempotent Apply methods, so receiving the same change through both
// paths, in either order, converges on the same contents.
type Replica struct {
	mu    sync.RWMutex
	state State
	tasks map[string]database.Task
	order []string
}

func NewReplica() *Replica {
	return &Replica{
		tasks: make(map[string]database.Task),
	}
}

// State reports the replica's synchronization state.
func (r *Replica) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Load discards the current contents and rebuilds the replica from a
// full snapshot, moving it to StateSynced.
func (r *Replica) Load(tasks []database.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]database.Task, len(tasks))
	r.order = make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := r.tasks[t.ID]; ok {
			continue
		}
		r.tasks[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	r.state = StateSynced
}

// Reset discards the contents and moves the replica back to
// StateDisconnected. Called when the event channel is lost so that no
// stale state leaks into the next session.
func (r *Replica) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]database.Task)
	r.order = nil
	r.state = StateDisconnected
}

// ApplyCreated inserts the task unless its id is already present:
// the client's own create response and the broadcast echo both arrive,
// and whichever lands second must be a no-op.
func (r *Replica) ApplyCreated(t database.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return
	}
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
}

// ApplyUpdated upserts by id: replace in place when present, insert
// when absent (guards against a missed created event).
func (r *Replica) ApplyUpdated(t database.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.tasks[t.ID] = t
}

// ApplyDeleted removes the id; an id the replica never held is a
// silent no-op.
func (r *Replica) ApplyDeleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return
	}
	delete(r.tasks, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Tasks returns a copy of the contents in insertion order.
func (r *Replica) Tasks() []database.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]database.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id])
	}
	return out
}

// Get returns one task by id.
func (r *Replica) Get(id string) (database.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// Len reports the number of tasks held.
func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
