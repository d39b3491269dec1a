package model

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/datadissem/src/models"
)

// SQLiteKeyStore keeps API key records in the api_keys table. Raw keys are
// never written; rows are addressed by HashKey(key).
type SQLiteKeyStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteKeyStore wraps an open, migrated database.
func NewSQLiteKeyStore(db *sql.DB) *SQLiteKeyStore {
	return &SQLiteKeyStore{db: db, now: time.Now}
}

// Generate inserts a new key record and returns the full key with the record
// as stored.
func (s *SQLiteKeyStore) Generate() (string, models.APIKeyRecord, error) {
	key := NewKey()
	rec := models.APIKeyRecord{Key: models.MaskKey(key), CreatedAt: s.now().UTC()}
	query := `INSERT INTO api_keys (key_hash, masked_key, created_at, call_count) VALUES (?, ?, ?, 0)`
	if _, err := s.db.Exec(query, HashKey(key), rec.Key, rec.CreatedAt); err != nil {
		return "", models.APIKeyRecord{}, fmt.Errorf("insert api key: %w", err)
	}
	return key, rec, nil
}

// Validate reports whether key exists.
func (s *SQLiteKeyStore) Validate(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM api_keys WHERE key_hash = ?`, HashKey(key)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	return true, nil
}

// RecordUsage bumps call_count and last_used. Unknown keys update nothing.
func (s *SQLiteKeyStore) RecordUsage(key string) error {
	query := `UPDATE api_keys SET call_count = call_count + 1, last_used = ? WHERE key_hash = ?`
	if _, err := s.db.Exec(query, s.now().UTC(), HashKey(key)); err != nil {
		return fmt.Errorf("record api key usage: %w", err)
	}
	return nil
}

// List returns masked records in creation order.
func (s *SQLiteKeyStore) List() ([]models.APIKeyRecord, error) {
	rows, err := s.db.Query(`SELECT masked_key, created_at, last_used, call_count FROM api_keys ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	records := []models.APIKeyRecord{}
	for rows.Next() {
		var rec models.APIKeyRecord
		var lastUsed sql.NullTime
		if err := rows.Scan(&rec.Key, &rec.CreatedAt, &lastUsed, &rec.CallCount); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			rec.LastUsed = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteKeyStore) Close() error {
	return s.db.Close()
}
