package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ralsuliman/studysync-tasks/database"
	"github.com/Ralsuliman/studysync-tasks/services"
)

// TaskHandler serves the shared task collection and the live event
// channel.
type TaskHandler struct {
	store       *database.TaskStore
	authService *services.AuthService
	hub         *services.Hub
	log         *zap.SugaredLogger

	// wsRequireAuth demands a token query parameter on the event
	// channel. Off by default: the original system let any peer that
	// could reach the socket observe every mutation.
	wsRequireAuth bool
}

func NewTaskHandler(store *database.TaskStore, authService *services.AuthService, hub *services.Hub, wsRequireAuth bool, log *zap.SugaredLogger) *TaskHandler {
	return &TaskHandler{
		store:         store,
		authService:   authService,
		hub:           hub,
		wsRequireAuth: wsRequireAuth,
		log:           log,
	}
}

// ListTasks returns every shared task, oldest first.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.List()
	if err != nil {
		h.log.Errorw("failed to list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask adds a shared task owned by the caller.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	var fields database.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	task, err := h.store.Create(identity.ID, fields)
	var validationErr *database.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}
	if err != nil {
		h.log.Errorw("failed to create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial update to one task.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch database.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	task, err := h.store.Update(id, patch)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	var validationErr *database.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}
	if err != nil {
		h.log.Errorw("failed to update task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// DeleteTask removes one task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.store.Delete(id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.log.Errorw("failed to delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

// HandleWebSocket upgrades the connection and subscribes it to the
// broadcast hub.
func (h *TaskHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsRequireAuth {
		if _, err := h.authService.VerifyJWT(r.URL.Query().Get("token")); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("failed to upgrade websocket", "error", err)
		return
	}

	client := &services.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
