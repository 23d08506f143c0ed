package store

import (
	"database/sql"
	"time"
)

// Contact caches the names the network has reported for a JID.
type Contact struct {
	JID          string
	PushName     string
	BusinessName string
	FullName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactStore handles contact operations.
type ContactStore struct {
	store *Store
}

// NewContactStore creates a new ContactStore.
func NewContactStore(s *Store) *ContactStore {
	return &ContactStore{store: s}
}

// Put stores or refreshes a contact. Empty incoming fields never erase
// previously learned names.
func (s *ContactStore) Put(c *Contact) error {
	now := time.Now().Unix()
	_, err := s.store.Exec(`
		INSERT INTO wavault_contacts (jid, push_name, business_name, full_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			push_name = COALESCE(excluded.push_name, wavault_contacts.push_name),
			business_name = COALESCE(excluded.business_name, wavault_contacts.business_name),
			full_name = COALESCE(excluded.full_name, wavault_contacts.full_name),
			updated_at = excluded.updated_at
	`, c.JID, nullString(c.PushName), nullString(c.BusinessName), nullString(c.FullName), now, now)
	return err
}

// Get retrieves a contact by JID, or nil.
func (s *ContactStore) Get(jid string) (*Contact, error) {
	row := s.store.QueryRow(`
		SELECT jid, push_name, business_name, full_name, created_at, updated_at
		FROM wavault_contacts WHERE jid = ?
	`, jid)

	var c Contact
	var pushName, businessName, fullName sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&c.JID, &pushName, &businessName, &fullName, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.PushName = pushName.String
	c.BusinessName = businessName.String
	c.FullName = fullName.String
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

// BestName returns the preferred display name for a JID: full name, then
// business name, then push name. Empty when the contact is unknown.
func (s *ContactStore) BestName(jid string) (string, error) {
	c, err := s.Get(jid)
	if err != nil || c == nil {
		return "", err
	}
	if c.FullName != "" {
		return c.FullName, nil
	}
	if c.BusinessName != "" {
		return c.BusinessName, nil
	}
	return c.PushName, nil
}
