package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ralsuliman/studysync-tasks/database"
)

var (
	// ErrEmailExists means the email is already registered and verified.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials covers both unknown emails and wrong
	// passwords so the two are indistinguishable to a caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified means the account exists but the
	// verification link was never followed.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidToken covers expired, malformed, and unknown tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// AuthService owns registration, email verification, login, and
// bearer-token issuance/validation.
type AuthService struct {
	users     *database.UserStore
	mailer    *Mailer
	jwtSecret []byte
	tokenTTL  time.Duration
	baseURL   string
	log       *zap.SugaredLogger
}

func NewAuthService(users *database.UserStore, mailer *Mailer, jwtSecret string, tokenTTL time.Duration, baseURL string, log *zap.SugaredLogger) *AuthService {
	return &AuthService{
		users:     users,
		mailer:    mailer,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		baseURL:   baseURL,
		log:       log,
	}
}

// Register creates an unverified account and sends a verification
// link. Registering an email that exists but was never verified
// refreshes the account and re-sends the link; a verified email yields
// ErrEmailExists.
func (s *AuthService) Register(name, email, password string) (database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, found, err := s.users.GetUserByEmail(email)
	if err != nil {
		return database.User{}, err
	}
	if found && existing.EmailVerified {
		return database.User{}, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return database.User{}, fmt.Errorf("failed to generate token: %w", err)
	}

	var user database.User
	if found {
		if existing.VerificationToken != "" {
			token = existing.VerificationToken
		}
		if err := s.users.RefreshUnverified(existing.ID, name, string(hash), token); err != nil {
			return database.User{}, err
		}
		user = existing
		user.Name = name
	} else {
		user, err = s.users.CreateUser(name, email, string(hash), token)
		if err != nil {
			return database.User{}, err
		}
	}

	verifyLink := fmt.Sprintf("%s/api/auth/verify/%s", s.baseURL, token)
	if err := s.mailer.SendVerificationEmail(email, verifyLink); err != nil {
		s.log.Warnw("failed to send verification email", "email", email, "error", err)
	}

	return user, nil
}

// VerifyEmail consumes a verification token and marks the account
// verified.
func (s *AuthService) VerifyEmail(token string) error {
	user, found, err := s.users.GetUserByVerificationToken(token)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidToken
	}
	return s.users.MarkVerified(user.ID)
}

// Login checks the password and verification status and returns the
// account plus a signed bearer token.
func (s *AuthService) Login(email, password string) (database.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, found, err := s.users.GetUserByEmail(email)
	if err != nil {
		return database.User{}, "", err
	}
	if !found {
		return database.User{}, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return database.User{}, "", ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return database.User{}, "", ErrEmailNotVerified
	}

	token, err := s.CreateJWT(user)
	if err != nil {
		return database.User{}, "", err
	}
	return user, token, nil
}

// CreateJWT generates a signed bearer token carrying the caller's
// identity claims.
func (s *AuthService) CreateJWT(user database.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWT validates a bearer token and returns the caller identity.
func (s *AuthService) VerifyJWT(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if id == "" || email == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{ID: id, Email: email, Name: name}, nil
}

// Helper to generate a secure random token
func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
