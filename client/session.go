package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ralsuliman/studysync-tasks/database"
)

// wsMessage mirrors the wire shape of one broadcast event.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Session ties a Replica to the server: it fetches the snapshot,
// applies the live event stream, reconnects with exponential backoff
// when the channel drops, and routes the client's own mutations
// through the same idempotent apply rules as broadcast events. A
// mutation therefore reaches the replica twice (direct response and
// broadcast echo) and lands exactly once.
type Session struct {
	api      *API
	replica  *Replica
	wsURL    string
	dialer   *websocket.Dialer
	log      *zap.SugaredLogger
	onChange func()
}

// NewSession builds a session over api. baseURL is the server root
// (http or https); onChange fires after every replica change and may
// be nil.
func NewSession(api *API, baseURL string, log *zap.SugaredLogger, onChange func()) *Session {
	if onChange == nil {
		onChange = func() {}
	}
	return &Session{
		api:      api,
		replica:  NewReplica(),
		wsURL:    websocketURL(baseURL),
		dialer:   websocket.DefaultDialer,
		log:      log,
		onChange: onChange,
	}
}

// Replica exposes the session's replica.
func (s *Session) Replica() *Replica {
	return s.replica
}

// Run connects, synchronizes, and keeps the replica current until ctx
// is canceled. Every lost connection discards the replica and rebuilds
// it from a fresh snapshot; missed events are never replayed.
func (s *Session) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for {
		synced, err := s.runOnce(ctx)
		s.replica.Reset()
		s.onChange()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warnw("session ended", "error", err)
		}
		if synced {
			policy.Reset()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.NextBackOff()):
		}
	}
}

// runOnce handles one connect-snapshot-stream cycle. The channel is
// opened before the snapshot is fetched so no event can fall between
// the two; events that are older than the snapshot are absorbed by the
// idempotent apply rules. The returned bool reports whether the
// replica reached StateSynced at all.
func (s *Session) runOnce(ctx context.Context) (bool, error) {
	wsURL := s.wsURL
	if token := s.api.Token(); token != "" {
		wsURL += "?token=" + url.QueryEscape(token)
	}

	conn, _, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Unblock the read loop when ctx is canceled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	snapshot, err := s.api.ListTasks(ctx)
	if err != nil {
		return false, err
	}
	s.replica.Load(snapshot)
	s.onChange()
	s.log.Infow("replica synced", "tasks", len(snapshot))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if err := s.applyMessage(message); err != nil {
			s.log.Warnw("ignoring malformed event", "error", err)
		}
	}
}

func (s *Session) applyMessage(message []byte) error {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	switch msg.Type {
	case database.EventTaskCreated:
		var t database.Task
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			return err
		}
		s.replica.ApplyCreated(t)
	case database.EventTaskUpdated:
		var t database.Task
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			return err
		}
		s.replica.ApplyUpdated(t)
	case database.EventTaskDeleted:
		var payload database.DeletedPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return err
		}
		s.replica.ApplyDeleted(payload.ID)
	default:
		// Unknown event types are skipped, not fatal.
		return nil
	}

	s.onChange()
	return nil
}

// Create issues the create and applies the authoritative response with
// the same rule the broadcast echo will use.
func (s *Session) Create(ctx context.Context, fields database.TaskFields) (database.Task, error) {
	task, err := s.api.CreateTask(ctx, fields)
	if err != nil {
		return database.Task{}, err
	}
	s.replica.ApplyCreated(task)
	s.onChange()
	return task, nil
}

// Update issues the partial update and upserts the response.
func (s *Session) Update(ctx context.Context, id string, patch database.TaskPatch) (database.Task, error) {
	task, err := s.api.UpdateTask(ctx, id, patch)
	if err != nil {
		return database.Task{}, err
	}
	s.replica.ApplyUpdated(task)
	s.onChange()
	return task, nil
}

// Delete issues the delete and removes the id locally.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.replica.ApplyDeleted(id)
	s.onChange()
	return nil
}

func websocketURL(baseURL string) string {
	wsURL := baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return wsURL + "/api/ws"
}
