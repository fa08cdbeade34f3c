package localstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetSetRemove(t *testing.T) {
	db := openTemp(t)

	_, ok, err := db.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Set("k", "v1"))
	require.NoError(t, db.Set("k", "v2"))
	v, ok, err := db.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, db.Remove("k"))
	_, ok, err = db.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingQueueRoundTrip(t *testing.T) {
	db := openTemp(t)
	q := NewPendingQueue(db, zap.NewNop())

	empty, err := q.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	in := []models.Shift{
		{ID: "pending_a", Title: "Bar", Date: "2026-10-20", StartTime: "13:00", EndTime: "20:00", EmployeeID: "e1", SendEmail: true, CreatedAt: created, IsPending: true},
		{ID: "pending_b", Title: "Bar", Date: "2026-10-20", StartTime: "22:00", EndTime: "02:00", EmployeeID: "e2", CreatedAt: created, IsPending: true},
	}
	require.NoError(t, q.Save(in))

	out, err := NewPendingQueue(db, zap.NewNop()).Load()
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Title, out[i].Title)
		assert.Equal(t, in[i].Date, out[i].Date)
		assert.Equal(t, in[i].StartTime, out[i].StartTime)
		assert.Equal(t, in[i].EndTime, out[i].EndTime)
		assert.Equal(t, in[i].EmployeeID, out[i].EmployeeID)
		assert.Equal(t, in[i].SendEmail, out[i].SendEmail)
		assert.True(t, in[i].CreatedAt.Equal(out[i].CreatedAt))
		assert.True(t, out[i].IsPending)
	}
}

func TestPendingQueueMalformed(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.Set(PendingKey, "{not json"))

	out, err := NewPendingQueue(db, zap.NewNop()).Load()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTokenCache(t *testing.T) {
	c := NewTokenCache(openTemp(t))

	tok, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, c.Save("ya29.token"))
	tok, err = c.Load()
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", tok)

	require.NoError(t, c.Clear())
	tok, err = c.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}
