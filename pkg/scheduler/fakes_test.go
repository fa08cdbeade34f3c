package scheduler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

var errBoom = errors.New("boom")

type memStore struct {
	mu        sync.Mutex
	employees map[string]models.Employee
	shifts    map[string]models.Shift
	failSave  bool
}

func newMemStore() *memStore {
	return &memStore{employees: map[string]models.Employee{}, shifts: map[string]models.Shift{}}
}

func (m *memStore) SaveEmployee(_ context.Context, e *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = *e
	return nil
}

func (m *memStore) DeleteEmployee(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.employees, id)
	for k, sh := range m.shifts {
		if sh.EmployeeID == id {
			delete(m.shifts, k)
		}
	}
	return nil
}

func (m *memStore) SaveShift(_ context.Context, s *models.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errBoom
	}
	m.shifts[s.ID] = *s
	return nil
}

func (m *memStore) DeleteShift(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shifts, id)
	return nil
}

type fakeCalendar struct {
	mu      sync.Mutex
	n       int
	failFor map[string]bool // employee ids whose events fail
	created []string
	deleted []string
}

func (c *fakeCalendar) CreateEvent(_ context.Context, sh models.Shift, e models.Employee) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[e.ID] {
		return "", errBoom
	}
	c.n++
	id := fmt.Sprintf("evt-%d", c.n)
	c.created = append(c.created, id)
	return id, nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, eventID)
	return nil
}

type memQueue struct {
	shifts []models.Shift
	saves  int
}

func (q *memQueue) Load() ([]models.Shift, error) {
	return append([]models.Shift(nil), q.shifts...), nil
}

func (q *memQueue) Save(shifts []models.Shift) error {
	q.saves++
	q.shifts = append([]models.Shift(nil), shifts...)
	return nil
}

type fakeSession struct {
	authorized bool
	bulk       bool
}

func (f *fakeSession) Authorized() bool { return f.authorized }
func (f *fakeSession) BulkMode() bool   { return f.bulk }

type harness struct {
	*Scheduler
	store   *memStore
	cal     *fakeCalendar
	queue   *memQueue
	session *fakeSession
}

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemStore(),
		cal:     &fakeCalendar{failFor: map[string]bool{}},
		queue:   &memQueue{},
		session: &fakeSession{authorized: true},
	}
	h.Scheduler = New(Deps{
		Store:    h.store,
		Calendar: h.cal,
		Queue:    h.queue,
		Session:  h.session,
		Logger:   zap.NewNop(),
	})
	h.now = func() time.Time { return testNow }
	n := 0
	h.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	h.ApplyEmployees([]models.Employee{
		{ID: "ann", Name: "Ann", Email: "ann@example.com", Color: "#a4bdfc", IsActive: true},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", Color: "#dc2127", IsActive: true},
		{ID: "cid", Name: "Cid", Email: "cid@example.com", Color: "#51b749", IsActive: true},
	})
	return h
}

func morning(ids ...string) ShiftInput {
	return ShiftInput{
		Title:       "Morning",
		Date:        "2026-10-20",
		StartTime:   "06:00",
		EndTime:     "14:00",
		EmployeeIDs: ids,
		SendEmail:   true,
	}
}

type fakeSource struct {
	employees [][]models.Employee
	shifts    [][]models.Shift
}

func (f *fakeSource) EmployeeSnapshots(ctx context.Context) iter.Seq2[[]models.Employee, error] {
	return replay(ctx, f.employees)
}

func (f *fakeSource) ShiftSnapshots(ctx context.Context) iter.Seq2[[]models.Shift, error] {
	return replay(ctx, f.shifts)
}

// replay yields the given snapshots, reports one error, then blocks until ctx ends.
func replay[T any](ctx context.Context, snaps [][]T) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for _, s := range snaps {
			if !yield(s, nil) {
				return
			}
		}
		if !yield(nil, errBoom) {
			return
		}
		<-ctx.Done()
	}
}
