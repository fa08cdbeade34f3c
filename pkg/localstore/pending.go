package localstore

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

// PendingQueue persists the unpublished shifts as one JSON document.
type PendingQueue struct {
	db     *DB
	logger *zap.Logger
}

func NewPendingQueue(db *DB, logger *zap.Logger) *PendingQueue {
	return &PendingQueue{db: db, logger: logger}
}

// Load returns the stored queue. A missing or unreadable entry yields an
// empty queue.
func (q *PendingQueue) Load() ([]models.Shift, error) {
	raw, ok, err := q.db.Get(PendingKey)
	if err != nil {
		return nil, fmt.Errorf("load pending queue: %w", err)
	}
	if !ok {
		return []models.Shift{}, nil
	}
	var shifts []models.Shift
	if err := json.Unmarshal([]byte(raw), &shifts); err != nil {
		q.logger.Warn("discarding malformed pending queue", zap.Error(err))
		return []models.Shift{}, nil
	}
	for i := range shifts {
		shifts[i].IsPending = true
	}
	return shifts, nil
}

func (q *PendingQueue) Save(shifts []models.Shift) error {
	if shifts == nil {
		shifts = []models.Shift{}
	}
	data, err := json.Marshal(shifts)
	if err != nil {
		return err
	}
	if err := q.db.Set(PendingKey, string(data)); err != nil {
		return fmt.Errorf("save pending queue: %w", err)
	}
	return nil
}

// TokenCache keeps the calendar access token.
type TokenCache struct {
	db *DB
}

func NewTokenCache(db *DB) *TokenCache {
	return &TokenCache{db: db}
}

func (c *TokenCache) Load() (string, error) {
	tok, _, err := c.db.Get(TokenKey)
	return tok, err
}

func (c *TokenCache) Save(token string) error {
	return c.db.Set(TokenKey, token)
}

func (c *TokenCache) Clear() error {
	return c.db.Remove(TokenKey)
}
