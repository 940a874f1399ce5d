package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Ralsuliman/studysync-tasks/database"
)

var (
	// ErrUnauthorized means the bearer token is missing, invalid, or
	// expired; the caller must re-authenticate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable means the server could not be reached or answered
	// with a server-side failure; the caller may retry with backoff.
	ErrUnavailable = errors.New("server unavailable")
)

// API is the REST client for the task service. Mutations and the
// snapshot fetch go through here; live events arrive separately over
// the websocket managed by Session.
type API struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// Token returns the current bearer token, empty when logged out.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Register creates an account. The server sends a verification email
// before the account can log in.
func (a *API) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return a.do(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

// Login authenticates and installs the returned bearer token.
func (a *API) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return err
	}
	a.SetToken(resp.Token)
	return nil
}

// ListTasks fetches the full snapshot of shared tasks, oldest first.
func (a *API) ListTasks(ctx context.Context) ([]database.Task, error) {
	var tasks []database.Task
	if err := a.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask adds a shared task and returns the authoritative record.
func (a *API) CreateTask(ctx context.Context, fields database.TaskFields) (database.Task, error) {
	var task database.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", fields, &task); err != nil {
		return database.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update and returns the post-update
// record.
func (a *API) UpdateTask(ctx context.Context, id string, patch database.TaskPatch) (database.Task, error) {
	var task database.Task
	if err := a.do(ctx, http.MethodPut, "/api/tasks/"+id, patch, &task); err != nil {
		return database.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a shared task.
func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// do performs one request and maps failure statuses onto the error
// taxonomy: 400 validation, 401 unauthorized, 404 not found, anything
// else unavailable.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	reqBody := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)

		switch resp.StatusCode {
		case http.StatusBadRequest:
			return &database.ValidationError{Field: "request", Reason: errBody.Error}
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, errBody.Error)
		case http.StatusNotFound:
			return database.ErrNotFound
		case http.StatusForbidden, http.StatusConflict:
			return errors.New(errBody.Error)
		default:
			return fmt.Errorf("%w: %s %s returned %d: %s",
				ErrUnavailable, method, path, resp.StatusCode, errBody.Error)
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
