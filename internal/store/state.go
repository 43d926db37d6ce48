package store

import (
	"database/sql"
	"errors"
	"time"
)

const keyLastPartner = "last_partner"

// SetState upserts a small key/value checkpoint.
func (db *DB) SetState(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetState returns the value for key, or "" if it was never set.
func (db *DB) GetState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// LastPartner returns the partner of the most recently opened conversation.
func (db *DB) LastPartner() (string, error) {
	return db.GetState(keyLastPartner)
}

// SetLastPartner remembers the partner of the conversation just opened.
func (db *DB) SetLastPartner(partner string) error {
	return db.SetState(keyLastPartner, partner)
}
