package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession stores the serialized OAuth token as the single
// credential record of a new session and returns the session ID.
func (s *Store) CreateAuthSession(tokenJSON string) (string, error) {
	id, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, token_json, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		id, tokenJSON, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetAuthSession returns the session for the given ID, or nil if not found/expired.
func (s *Store) GetAuthSession(id string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, token_json, created_at, expires_at FROM auth_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.TokenJSON, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(id)
		return nil, nil
	}
	return &sess, nil
}

// UpdateAuthToken replaces the stored token record, e.g. after a refresh.
func (s *Store) UpdateAuthToken(id, tokenJSON string) error {
	_, err := s.db.Exec(`UPDATE auth_sessions SET token_json = ? WHERE id = ?`, tokenJSON, id)
	return err
}

// DeleteAuthSession removes a session and its token record.
func (s *Store) DeleteAuthSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, id)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
