// Package localstore is the device-local persistent key/value area: the
// cached calendar token and the queue of pending shifts live here.
package localstore

import (
	"database/sql"
	"errors"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const (
	TokenKey   = "google_token"
	PendingKey = "pendingEvents"
)

type DB struct {
	*sql.DB
	mu sync.Mutex
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err := initDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func initDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS local_storage (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Get returns the value under key; ok is false when it is not set.
func (db *DB) Get(key string) (value string, ok bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	err = db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (db *DB) Set(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.Exec(`
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (db *DB) Remove(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.Exec("DELETE FROM local_storage WHERE key = ?", key)
	return err
}
