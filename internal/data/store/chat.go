package store

import (
	"database/sql"
	"time"
)

// Chat represents a conversation owned by one session. ID is the composite
// key built by ChatKey.
type Chat struct {
	ID                   string
	SessionID            string
	Name                 string
	PhoneNumbers         []string
	IsGroup              bool
	LastMessageID        string
	LastMessageTimestamp int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ChatStore handles chat operations.
type ChatStore struct {
	store *Store
}

// NewChatStore creates a new ChatStore.
func NewChatStore(s *Store) *ChatStore {
	return &ChatStore{store: s}
}

// Upsert stores or refreshes a chat keyed by its composite id. A second
// upsert for the same id never duplicates the row; non-empty incoming
// fields refresh the stored ones.
func (s *ChatStore) Upsert(c *Chat) error {
	now := time.Now().Unix()
	_, err := s.store.Exec(`
		INSERT INTO wavault_chats (
			id, session_id, name, phone_numbers, is_group,
			last_message_id, last_message_timestamp, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(excluded.name, wavault_chats.name),
			phone_numbers = COALESCE(excluded.phone_numbers, wavault_chats.phone_numbers),
			is_group = excluded.is_group,
			updated_at = excluded.updated_at
	`, c.ID, c.SessionID, nullString(c.Name), jsonStrings(c.PhoneNumbers), boolToInt(c.IsGroup),
		nullString(c.LastMessageID), nullInt64(c.LastMessageTimestamp), now, now)
	return err
}

// Get retrieves a chat by composite id, or nil.
func (s *ChatStore) Get(id string) (*Chat, error) {
	row := s.store.QueryRow(`
		SELECT id, session_id, name, phone_numbers, is_group,
			last_message_id, last_message_timestamp, created_at, updated_at
		FROM wavault_chats WHERE id = ?
	`, id)
	return scanChat(row)
}

// GetBySession retrieves all chats for a session, most recent first.
func (s *ChatStore) GetBySession(sessionID string) ([]*Chat, error) {
	rows, err := s.store.Query(`
		SELECT id, session_id, name, phone_numbers, is_group,
			last_message_id, last_message_timestamp, created_at, updated_at
		FROM wavault_chats WHERE session_id = ?
		ORDER BY last_message_timestamp DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

// UpdateLastMessage advances the chat's last-message pointer. The pointer
// only moves forward: out-of-order replays with older timestamps leave it
// untouched.
func (s *ChatStore) UpdateLastMessage(id, messageID string, timestamp int64) error {
	_, err := s.store.Exec(`
		UPDATE wavault_chats
		SET last_message_id = ?, last_message_timestamp = ?, updated_at = ?
		WHERE id = ? AND (last_message_timestamp IS NULL OR last_message_timestamp <= ?)
	`, messageID, timestamp, time.Now().Unix(), id, timestamp)
	return err
}

// FindByPhone locates a chat in a session whose participant numbers or
// composite id contain the cleaned phone number.
func (s *ChatStore) FindByPhone(cleanPhone, sessionID string) (*Chat, error) {
	row := s.store.QueryRow(`
		SELECT id, session_id, name, phone_numbers, is_group,
			last_message_id, last_message_timestamp, created_at, updated_at
		FROM wavault_chats
		WHERE session_id = ? AND (phone_numbers LIKE ? OR id LIKE ?)
		ORDER BY last_message_timestamp DESC LIMIT 1
	`, sessionID, "%"+cleanPhone+"%", cleanPhone+"%")
	return scanChat(row)
}

// SearchByPhone lists all chats in a session matching the cleaned phone
// number.
func (s *ChatStore) SearchByPhone(cleanPhone, sessionID string) ([]*Chat, error) {
	rows, err := s.store.Query(`
		SELECT id, session_id, name, phone_numbers, is_group,
			last_message_id, last_message_timestamp, created_at, updated_at
		FROM wavault_chats
		WHERE session_id = ? AND (phone_numbers LIKE ? OR id LIKE ?)
		ORDER BY last_message_timestamp DESC
	`, sessionID, "%"+cleanPhone+"%", "%"+cleanPhone+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

func scanChat(row *sql.Row) (*Chat, error) {
	var c Chat
	var name, lastMsgID sql.NullString
	var phones []byte
	var isGroup int
	var lastMsgTs sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&c.ID, &c.SessionID, &name, &phones, &isGroup,
		&lastMsgID, &lastMsgTs, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Name = name.String
	c.PhoneNumbers = jsonUnmarshalStrings(phones)
	c.IsGroup = isGroup == 1
	c.LastMessageID = lastMsgID.String
	c.LastMessageTimestamp = lastMsgTs.Int64
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

func scanChats(rows *sql.Rows) ([]*Chat, error) {
	var chats []*Chat
	for rows.Next() {
		var c Chat
		var name, lastMsgID sql.NullString
		var phones []byte
		var isGroup int
		var lastMsgTs sql.NullInt64
		var createdAt, updatedAt int64

		if err := rows.Scan(&c.ID, &c.SessionID, &name, &phones, &isGroup,
			&lastMsgID, &lastMsgTs, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		c.Name = name.String
		c.PhoneNumbers = jsonUnmarshalStrings(phones)
		c.IsGroup = isGroup == 1
		c.LastMessageID = lastMsgID.String
		c.LastMessageTimestamp = lastMsgTs.Int64
		c.CreatedAt = time.Unix(createdAt, 0)
		c.UpdatedAt = time.Unix(updatedAt, 0)
		chats = append(chats, &c)
	}
	return chats, rows.Err()
}
