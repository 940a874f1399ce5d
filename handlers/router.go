package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. Task routes sit behind the auth
// middleware; the websocket route does its own (optional) check.
func NewRouter(authHandler *AuthHandler, taskHandler *TaskHandler, authMiddleware *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/verify/{token}", authHandler.VerifyEmail).Methods("GET")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	// Task routes (protected)
	tasks := r.PathPrefix("/api/tasks").Subrouter()
	tasks.Use(authMiddleware.Auth)
	tasks.HandleFunc("", taskHandler.ListTasks).Methods("GET")
	tasks.HandleFunc("", taskHandler.CreateTask).Methods("POST")
	tasks.HandleFunc("/{id}", taskHandler.UpdateTask).Methods("PUT")
	tasks.HandleFunc("/{id}", taskHandler.DeleteTask).Methods("DELETE")

	// WebSocket route for live task events
	r.HandleFunc("/api/ws", taskHandler.HandleWebSocket)

	// Health check
	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}).Methods("GET")

	return r
}
