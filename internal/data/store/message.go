package store

import (
	"database/sql"
	"time"
)

// Message status values, driven by externally reported status codes.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusReceived  = "received"
)

// Message represents one recorded message. ID is the network-assigned
// message id and is the dedup key; Timestamp is network-assigned, not
// insertion time.
type Message struct {
	ID         string
	ChatID     string
	SessionID  string
	FromNumber string
	SenderID   string
	SenderName string
	Body       string
	Timestamp  int64
	FromMe     bool
	HasMedia   bool
	MediaType  string
	MediaURL   string
	ParentID   string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MessageStore handles message operations.
type MessageStore struct {
	store *Store
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(s *Store) *MessageStore {
	return &MessageStore{store: s}
}

// Insert stores a message if its id is not already present. Re-inserting
// an existing id is a no-op regardless of payload; the stored row is never
// overwritten. Returns whether a row was actually inserted.
func (s *MessageStore) Insert(m *Message) (bool, error) {
	now := time.Now().Unix()
	status := m.Status
	if status == "" {
		status = StatusReceived
	}

	res, err := s.store.Exec(`
		INSERT OR IGNORE INTO wavault_messages (
			id, chat_id, session_id, from_number, sender_id, sender_name,
			body, timestamp, from_me, has_media, media_type, media_url,
			parent_id, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ChatID, m.SessionID, nullString(m.FromNumber), nullString(m.SenderID),
		nullString(m.SenderName), nullString(m.Body), m.Timestamp, boolToInt(m.FromMe),
		boolToInt(m.HasMedia), nullString(m.MediaType), nullString(m.MediaURL),
		nullString(m.ParentID), status, now, now)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Get retrieves a message by id, or nil.
func (s *MessageStore) Get(id string) (*Message, error) {
	row := s.store.QueryRow(`
		SELECT id, chat_id, session_id, from_number, sender_id, sender_name,
			body, timestamp, from_me, has_media, media_type, media_url,
			parent_id, status, created_at, updated_at
		FROM wavault_messages WHERE id = ?
	`, id)
	return scanMessage(row)
}

// Exists reports whether a message id is already stored.
func (s *MessageStore) Exists(id string) (bool, error) {
	var n int
	err := s.store.Get(&n, `SELECT COUNT(*) FROM wavault_messages WHERE id = ?`, id)
	return n > 0, err
}

// GetByChat retrieves messages for a chat, newest first.
func (s *MessageStore) GetByChat(chatID string, limit, offset int) ([]*Message, error) {
	rows, err := s.store.Query(`
		SELECT id, chat_id, session_id, from_number, sender_id, sender_name,
			body, timestamp, from_me, has_media, media_type, media_url,
			parent_id, status, created_at, updated_at
		FROM wavault_messages WHERE chat_id = ?
		ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UpdateStatus overwrites a message's status with the latest-received
// value. Ordering is not enforced: a late "delivered" can overwrite
// "read" under network reordering, matching last-write-wins semantics.
// Returns false when the id is unknown; callers log and drop those.
func (s *MessageStore) UpdateStatus(id, status string) (bool, error) {
	res, err := s.store.Exec(`
		UPDATE wavault_messages SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().Unix(), id)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SetMediaURL records the uploaded media reference for a message.
func (s *MessageStore) SetMediaURL(id, url string) error {
	_, err := s.store.Exec(`
		UPDATE wavault_messages SET media_url = ?, updated_at = ? WHERE id = ?
	`, url, time.Now().Unix(), id)
	return err
}

// Delete removes a message by id. Deleting an id that was never stored is
// a no-op, which is what revoke handling relies on.
func (s *MessageStore) Delete(id string) error {
	_, err := s.store.Exec(`DELETE FROM wavault_messages WHERE id = ?`, id)
	return err
}

// MaxTimestamp returns the newest stored message timestamp for a session,
// or zero when the session has no messages.
func (s *MessageStore) MaxTimestamp(sessionID string) (int64, error) {
	var ts sql.NullInt64
	err := s.store.Get(&ts, `
		SELECT MAX(timestamp) FROM wavault_messages WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return ts.Int64, nil
}

func scanMessage(row *sql.Row) (*Message, error) {
	var m Message
	var fromNumber, senderID, senderName, body, mediaType, mediaURL, parentID sql.NullString
	var fromMe, hasMedia int
	var createdAt, updatedAt int64

	err := row.Scan(&m.ID, &m.ChatID, &m.SessionID, &fromNumber, &senderID, &senderName,
		&body, &m.Timestamp, &fromMe, &hasMedia, &mediaType, &mediaURL,
		&parentID, &m.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.FromNumber = fromNumber.String
	m.SenderID = senderID.String
	m.SenderName = senderName.String
	m.Body = body.String
	m.FromMe = fromMe == 1
	m.HasMedia = hasMedia == 1
	m.MediaType = mediaType.String
	m.MediaURL = mediaURL.String
	m.ParentID = parentID.String
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

func scanMessageRows(rows *sql.Rows) (*Message, error) {
	var m Message
	var fromNumber, senderID, senderName, body, mediaType, mediaURL, parentID sql.NullString
	var fromMe, hasMedia int
	var createdAt, updatedAt int64

	err := rows.Scan(&m.ID, &m.ChatID, &m.SessionID, &fromNumber, &senderID, &senderName,
		&body, &m.Timestamp, &fromMe, &hasMedia, &mediaType, &mediaURL,
		&parentID, &m.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.FromNumber = fromNumber.String
	m.SenderID = senderID.String
	m.SenderName = senderName.String
	m.Body = body.String
	m.FromMe = fromMe == 1
	m.HasMedia = hasMedia == 1
	m.MediaType = mediaType.String
	m.MediaURL = mediaURL.String
	m.ParentID = parentID.String
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}
