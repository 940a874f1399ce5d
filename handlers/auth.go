package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Ralsuliman/studysync-tasks/services"
)

// AuthHandler handles registration, email verification, and login.
type AuthHandler struct {
	authService *services.AuthService
	log         *zap.SugaredLogger
}

func NewAuthHandler(authService *services.AuthService, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Register creates an account and sends the verification email.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	_, err := h.authService.Register(req.Name, req.Email, req.Password)
	if errors.Is(err, services.ErrEmailExists) {
		writeError(w, http.StatusConflict, "email already exists, please log in instead")
		return
	}
	if err != nil {
		h.log.Errorw("registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "account created, please verify your email before logging in",
	})
}

// VerifyEmail consumes the token from the emailed link.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	err := h.authService.VerifyEmail(token)
	if errors.Is(err, services.ErrInvalidToken) {
		writeError(w, http.StatusBadRequest, "invalid or expired verification link")
		return
	}
	if err != nil {
		h.log.Errorw("email verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "email verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "email verified, you can now log in",
	})
}

// Login checks credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, token, err := h.authService.Login(req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if errors.Is(err, services.ErrEmailNotVerified) {
		writeError(w, http.StatusForbidden, "please verify your email before logging in")
		return
	}
	if err != nil {
		h.log.Errorw("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}
