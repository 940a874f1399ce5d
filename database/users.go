package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserStore handles account persistence for registration, email
// verification, and login.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new unverified account.
func (s *UserStore) CreateUser(name, email, passwordHash, verificationToken string) (User, error) {
	now := time.Now().UTC()
	u := User{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             email,
		PasswordHash:      passwordHash,
		EmailVerified:     false,
		VerificationToken: verificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := s.db.Exec(`INSERT INTO users (id, name, email, password_hash,
		email_verified, verification_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.EmailVerified,
		u.VerificationToken, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks an account up by email. The bool reports
// whether it exists.
func (s *UserStore) GetUserByEmail(email string) (User, bool, error) {
	return s.getUser(`SELECT id, name, email, password_hash, email_verified,
		verification_token, created_at, updated_at FROM users WHERE email = ?`, email)
}

// GetUserByVerificationToken looks an account up by its pending
// verification token.
func (s *UserStore) GetUserByVerificationToken(token string) (User, bool, error) {
	return s.getUser(`SELECT id, name, email, password_hash, email_verified,
		verification_token, created_at, updated_at
		FROM users WHERE verification_token = ? AND verification_token != ''`, token)
}

// RefreshUnverified updates the name, password, and verification token
// of an account that registered but never verified.
func (s *UserStore) RefreshUnverified(id, name, passwordHash, verificationToken string) error {
	_, err := s.db.Exec(`UPDATE users SET name = ?, password_hash = ?,
		verification_token = ?, updated_at = ? WHERE id = ?`,
		name, passwordHash, verificationToken, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to refresh user: %w", err)
	}
	return nil
}

// MarkVerified flips the account to verified and clears the token.
func (s *UserStore) MarkVerified(id string) error {
	_, err := s.db.Exec(`UPDATE users SET email_verified = 1,
		verification_token = '', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

func (s *UserStore) getUser(query string, arg any) (User, bool, error) {
	row := s.db.QueryRow(query, arg)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.EmailVerified, &u.VerificationToken, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, true, nil
}
