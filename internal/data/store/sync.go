package store

import (
	"database/sql"
	"time"
)

// SyncStateStore tracks the per-session history watermark. History batches
// replay the same conversations on every login; the watermark lets
// ingestion skip segments older than what is already stored.
type SyncStateStore struct {
	store *Store
}

// NewSyncStateStore creates a new SyncStateStore.
func NewSyncStateStore(s *Store) *SyncStateStore {
	return &SyncStateStore{store: s}
}

// Watermark returns the newest message timestamp already ingested for a
// session, or zero when the session has never synced.
func (s *SyncStateStore) Watermark(sessionID string) (int64, error) {
	var ts sql.NullInt64
	err := s.store.Get(&ts, `
		SELECT last_message_ts FROM wavault_sync_state WHERE session_id = ?
	`, sessionID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ts.Int64, nil
}

// Advance moves the watermark forward. Older timestamps are ignored so a
// replayed history batch can never regress it.
func (s *SyncStateStore) Advance(sessionID string, ts int64) error {
	now := time.Now().Unix()
	_, err := s.store.Exec(`
		INSERT INTO wavault_sync_state (session_id, last_message_ts, last_sync_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_message_ts = MAX(excluded.last_message_ts, wavault_sync_state.last_message_ts),
			last_sync_at = excluded.last_sync_at
	`, sessionID, ts, now)
	return err
}

// Clear resets the watermark so the next login re-ingests full history.
func (s *SyncStateStore) Clear(sessionID string) error {
	_, err := s.store.Exec(`DELETE FROM wavault_sync_state WHERE session_id = ?`, sessionID)
	return err
}
