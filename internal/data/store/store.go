// Package store is the persistence gateway: the single source of truth for
// sessions, chats, messages, and contacts. The whatsmeow credential
// container shares the same database handle so protocol auth state and
// recorded data live and move together.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Store wraps the application database and whatsmeow's sqlstore.
type Store struct {
	db        *sqlx.DB
	container *sqlstore.Container
	log       waLog.Logger
}

// New creates a new Store with the given database path.
func New(dbPath string, log waLog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	container := sqlstore.NewWithDB(db.DB, "sqlite3", log.Sub("whatsmeow"))
	if err := container.Upgrade(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to upgrade whatsmeow schema: %w", err)
	}

	s := &Store{
		db:        db,
		container: container,
		log:       log.Sub("Store"),
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create app tables: %w", err)
	}

	return s, nil
}

// Container returns the whatsmeow sqlstore container holding per-session
// protocol credentials.
func (s *Store) Container() *sqlstore.Container {
	return s.container
}

// DB returns the underlying database handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(schema)
	return err
}

// ClearAppState drops the stored app-state sync versions for a device so
// the network replays history on the next connect. Equivalent to wiping
// the sync-state markers without touching credentials.
func (s *Store) ClearAppState(deviceJID string) error {
	if deviceJID == "" {
		return nil
	}
	if _, err := s.db.Exec(`DELETE FROM whatsmeow_app_state_version WHERE jid = ?`, deviceJID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM whatsmeow_app_state_mutation_macs WHERE jid = ?`, deviceJID)
	return err
}

// Exec executes a query without returning rows.
func (s *Store) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// Query executes a query that returns rows.
func (s *Store) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

// QueryRow executes a query that returns a single row.
func (s *Store) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// Get scans a single row into dest.
func (s *Store) Get(dest interface{}, query string, args ...interface{}) error {
	return s.db.Get(dest, query, args...)
}

// Select scans multiple rows into dest.
func (s *Store) Select(dest interface{}, query string, args ...interface{}) error {
	return s.db.Select(dest, query, args...)
}

// Begin starts a transaction.
func (s *Store) Begin() (*sqlx.Tx, error) {
	return s.db.Beginx()
}
