package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session represents one authenticated connection lifecycle bound to a
// single phone number.
type Session struct {
	ID          string
	PhoneNumber string
	Ready       bool
	QR          string
	DeviceJID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MergeResult reports how many rows a session merge re-parented.
type MergeResult struct {
	Chats    int64
	Messages int64
}

// SessionStore handles session operations.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(s *Store) *SessionStore {
	return &SessionStore{store: s}
}

// Create inserts a new, not-yet-ready session and returns its id.
func (s *SessionStore) Create() (string, error) {
	id := uuid.NewString()
	now := time.Now().Unix()
	_, err := s.store.Exec(`
		INSERT INTO wavault_sessions (id, ready, created_at, updated_at)
		VALUES (?, 0, ?, ?)
	`, id, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Ensure inserts a session row with a caller-supplied id if it does not
// already exist. Existing rows are left untouched.
func (s *SessionStore) Ensure(id string) error {
	now := time.Now().Unix()
	_, err := s.store.Exec(`
		INSERT OR IGNORE INTO wavault_sessions (id, ready, created_at, updated_at)
		VALUES (?, 0, ?, ?)
	`, id, now, now)
	return err
}

// Get retrieves a session by id, or nil if it does not exist.
func (s *SessionStore) Get(id string) (*Session, error) {
	row := s.store.QueryRow(`
		SELECT id, phone_number, ready, qr, device_jid, created_at, updated_at
		FROM wavault_sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// GetByPhone retrieves the most recent ready session bound to a phone
// number, or nil.
func (s *SessionStore) GetByPhone(phone string) (*Session, error) {
	row := s.store.QueryRow(`
		SELECT id, phone_number, ready, qr, device_jid, created_at, updated_at
		FROM wavault_sessions
		WHERE phone_number = ? AND ready = 1
		ORDER BY updated_at DESC LIMIT 1
	`, phone)
	return scanSession(row)
}

// AllReady retrieves every session currently marked ready.
func (s *SessionStore) AllReady() ([]*Session, error) {
	rows, err := s.store.Query(`
		SELECT id, phone_number, ready, qr, device_jid, created_at, updated_at
		FROM wavault_sessions WHERE ready = 1 ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetQR stores a rendered QR payload for a session. Ready sessions are
// skipped: a late QR event must never overwrite an authenticated session.
func (s *SessionStore) SetQR(id, qr string) error {
	_, err := s.store.Exec(`
		UPDATE wavault_sessions SET qr = ?, updated_at = ?
		WHERE id = ? AND ready = 0
	`, qr, time.Now().Unix(), id)
	return err
}

// MarkReady flips a session to ready, binds its phone number, and clears
// the pending QR payload.
func (s *SessionStore) MarkReady(id, phone string) error {
	_, err := s.store.Exec(`
		UPDATE wavault_sessions SET ready = 1, phone_number = ?, qr = NULL, updated_at = ?
		WHERE id = ?
	`, phone, time.Now().Unix(), id)
	return err
}

// SetNotReady flips a session to not-ready. Only explicit logout and
// explicit termination call this; transient disconnects never do.
func (s *SessionStore) SetNotReady(id string) error {
	_, err := s.store.Exec(`
		UPDATE wavault_sessions SET ready = 0, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), id)
	return err
}

// SetDeviceJID records the credential-store key for a session.
func (s *SessionStore) SetDeviceJID(id, deviceJID string) error {
	_, err := s.store.Exec(`
		UPDATE wavault_sessions SET device_jid = ?, updated_at = ? WHERE id = ?
	`, deviceJID, time.Now().Unix(), id)
	return err
}

// Delete removes a session row.
func (s *SessionStore) Delete(id string) error {
	_, err := s.store.Exec(`DELETE FROM wavault_sessions WHERE id = ?`, id)
	return err
}

// Merge re-parents every chat and message owned by oldID to newID and
// removes the old session row, all in one transaction. Composite chat ids
// are rewritten to the new session suffix so re-ingesting the same remote
// chat keeps resolving to the same row.
func (s *SessionStore) Merge(oldID, newID string) (*MergeResult, error) {
	tx, err := s.store.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var chatIDs []string
	if err := tx.Select(&chatIDs, `SELECT id FROM wavault_chats WHERE session_id = ?`, oldID); err != nil {
		return nil, fmt.Errorf("failed to list chats for merge: %w", err)
	}

	result := &MergeResult{}
	for _, oldChatID := range chatIDs {
		newChatID := rewriteChatKey(oldChatID, oldID, newID)

		res, err := tx.Exec(`
			UPDATE wavault_messages SET chat_id = ?, session_id = ? WHERE chat_id = ?
		`, newChatID, newID, oldChatID)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate messages for chat %s: %w", oldChatID, err)
		}
		moved, _ := res.RowsAffected()
		result.Messages += moved

		// The new session may already own the chat from live ingestion;
		// in that case the old row is dropped rather than renamed.
		var exists int
		err = tx.Get(&exists, `SELECT COUNT(*) FROM wavault_chats WHERE id = ?`, newChatID)
		if err != nil {
			return nil, err
		}
		if exists > 0 {
			if _, err := tx.Exec(`DELETE FROM wavault_chats WHERE id = ?`, oldChatID); err != nil {
				return nil, err
			}
		} else {
			if _, err := tx.Exec(`
				UPDATE wavault_chats SET id = ?, session_id = ? WHERE id = ?
			`, newChatID, newID, oldChatID); err != nil {
				return nil, err
			}
		}
		result.Chats++
	}

	if _, err := tx.Exec(`DELETE FROM wavault_sync_state WHERE session_id = ?`, oldID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM wavault_sessions WHERE id = ?`, oldID); err != nil {
		return nil, fmt.Errorf("failed to delete merged session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var phone, qr, deviceJID sql.NullString
	var ready int
	var createdAt, updatedAt int64

	err := row.Scan(&sess.ID, &phone, &ready, &qr, &deviceJID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.PhoneNumber = phone.String
	sess.Ready = ready == 1
	sess.QR = qr.String
	sess.DeviceJID = deviceJID.String
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}

func scanSessionRows(rows *sql.Rows) (*Session, error) {
	var sess Session
	var phone, qr, deviceJID sql.NullString
	var ready int
	var createdAt, updatedAt int64

	if err := rows.Scan(&sess.ID, &phone, &ready, &qr, &deviceJID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	sess.PhoneNumber = phone.String
	sess.Ready = ready == 1
	sess.QR = qr.String
	sess.DeviceJID = deviceJID.String
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}
