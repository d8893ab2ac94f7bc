package store

import (
	"database/sql"

	"github.com/pavelanni/examprep/internal/model"
)

const (
	keyProvider = "ai_provider"
	keyModel    = "ai_model"
)

// SetValue upserts a key-value pair within a scope (one browser device).
func (s *Store) SetValue(scope, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (scope, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET value = ?`,
		scope, key, value, value,
	)
	return err
}

// GetValue returns the value for a key within a scope.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetValue(scope, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE scope = ? AND key = ?`, scope, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetSettings reads the provider+model pair for a device, filling unset
// fields from model.DefaultSettings.
func (s *Store) GetSettings(device string) (model.Settings, error) {
	out := model.DefaultSettings()
	provider, err := s.GetValue(device, keyProvider)
	if err != nil {
		return out, err
	}
	m, err := s.GetValue(device, keyModel)
	if err != nil {
		return out, err
	}
	if provider != "" {
		out.Provider = provider
	}
	if m != "" {
		out.Model = m
	}
	return out, nil
}

// SaveSettings stores the provider+model pair for a device.
func (s *Store) SaveSettings(device string, settings model.Settings) error {
	if err := s.SetValue(device, keyModel, settings.Model); err != nil {
		return err
	}
	return s.SetValue(device, keyProvider, settings.Provider)
}
