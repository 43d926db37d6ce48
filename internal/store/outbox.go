package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a journal row does not exist.
var ErrNotFound = errors.New("not found")

// QueueOutbox journals an outgoing message before it is transmitted.
func (db *DB) QueueOutbox(clientMsgID, owner, recipient, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, owner, recipient, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'queued', ?, ?)`,
		clientMsgID, owner, recipient, body, now, now)
	return err
}

// MarkOutboxSent records that the frame was written to the live channel.
// Only a queued entry moves to sent.
func (db *DB) MarkOutboxSent(clientMsgID string) error {
	return db.setOutboxStatus(clientMsgID, OutboxSent, "", "", OutboxQueued)
}

// MarkOutboxFailed records a transmission failure with its error message.
// Only a queued entry moves to failed.
func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	return db.setOutboxStatus(clientMsgID, OutboxFailed, errMsg, "", OutboxQueued)
}

// MarkOutboxConfirmed records the server ID of the echo that confirmed the
// message. The echo may be reconciled before the sender records the write, so
// any earlier status moves to confirmed.
func (db *DB) MarkOutboxConfirmed(clientMsgID, serverMsgID string) error {
	return db.setOutboxStatus(clientMsgID, OutboxConfirmed, "", serverMsgID, OutboxQueued, OutboxSent, OutboxFailed)
}

// setOutboxStatus moves an entry to status if its current status is one of
// from. An entry that has already moved past from is left untouched and is not
// an error.
func (db *DB) setOutboxStatus(clientMsgID, status, errMsg, serverMsgID string, from ...string) error {
	now := time.Now().UnixMilli()
	args := []any{status, errMsg, errMsg, serverMsgID, serverMsgID, now, clientMsgID}
	for _, f := range from {
		args = append(args, f)
	}
	res, err := db.Exec(`
		UPDATE outbox SET
			status = ?,
			error_message = CASE WHEN ? != '' THEN ? ELSE error_message END,
			server_msg_id = CASE WHEN ? != '' THEN ? ELSE server_msg_id END,
			updated_at = ?
		WHERE client_msg_id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := db.GetOutbox(clientMsgID); err != nil {
		return err
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// GetOutbox returns a single journal entry.
func (db *DB) GetOutbox(clientMsgID string) (*OutboxEntry, error) {
	row := db.QueryRow(`
		SELECT id, client_msg_id, owner, recipient, body, status, error_message, server_msg_id, created_at, updated_at
		FROM outbox WHERE client_msg_id = ?`, clientMsgID)
	e, err := scanOutbox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox %s: %w", clientMsgID, ErrNotFound)
	}
	return e, err
}

// ListOutbox returns journal entries newest first, optionally filtered by status.
func (db *DB) ListOutbox(status string, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT id, client_msg_id, owner, recipient, body, status, error_message, server_msg_id, created_at, updated_at
		FROM outbox`
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		e, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutbox(s scanner) (*OutboxEntry, error) {
	var e OutboxEntry
	if err := s.Scan(&e.ID, &e.ClientMsgID, &e.Owner, &e.Recipient, &e.Body, &e.Status,
		&e.ErrorMessage, &e.ServerMsgID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
