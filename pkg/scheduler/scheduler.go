// Package scheduler keeps the admin's working copy of employees, published
// shifts and pending shifts, and carries out every change to them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNotFound             = errors.New("not found")
	ErrNothingSelected      = errors.New("no pending shifts selected")
	ErrNotAuthorized        = errors.New("calendar is not authorized")
)

// ValidationError rejects form input before anything is written.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Store is the remote collection of employees and published shifts.
type Store interface {
	SaveEmployee(ctx context.Context, e *models.Employee) error
	DeleteEmployee(ctx context.Context, id string) error
	SaveShift(ctx context.Context, s *models.Shift) error
	DeleteShift(ctx context.Context, id string) error
}

// Calendar mirrors shifts as external calendar events.
type Calendar interface {
	CreateEvent(ctx context.Context, shift models.Shift, employee models.Employee) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// Queue persists pending shifts on this device.
type Queue interface {
	Load() ([]models.Shift, error)
	Save(shifts []models.Shift) error
}

// Session exposes the parts of the admin session the scheduler reads.
type Session interface {
	Authorized() bool
	BulkMode() bool
}

type Deps struct {
	Store    Store
	Calendar Calendar
	Queue    Queue
	Session  Session
	Logger   *zap.Logger
}

type Scheduler struct {
	store   Store
	cal     Calendar
	queue   Queue
	session Session
	logger  *zap.Logger

	now   func() time.Time
	newID func() string

	// op serializes mutations; mu guards the collections.
	op        sync.Mutex
	mu        sync.RWMutex
	employees []models.Employee
	shifts    map[string]models.Shift
	pending   []models.Shift
}

func New(d Deps) *Scheduler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Scheduler{
		store:   d.Store,
		cal:     d.Calendar,
		queue:   d.Queue,
		session: d.Session,
		logger:  d.Logger,
		now:     time.Now,
		newID:   uuid.NewString,
		shifts:  make(map[string]models.Shift),
	}
}

// LoadPending restores the pending queue saved on this device.
func (s *Scheduler) LoadPending() error {
	pending, err := s.queue.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	s.logger.Info("pending queue loaded", zap.Int("shifts", len(pending)))
	return nil
}

// savePending replaces the queue in memory and on disk.
func (s *Scheduler) savePending(pending []models.Shift) error {
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	return s.queue.Save(pending)
}

func (s *Scheduler) employee(id string) (models.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if e.ID == id {
			return e, true
		}
	}
	return models.Employee{}, false
}

func (s *Scheduler) pendingCopy() []models.Shift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Shift(nil), s.pending...)
}

func (s *Scheduler) authorized() bool {
	return s.session != nil && s.session.Authorized()
}

// Employees returns the known employees in snapshot order.
func (s *Scheduler) Employees() []models.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Employee(nil), s.employees...)
}

// Shifts returns the published shifts ordered by date and start time.
func (s *Scheduler) Shifts() []models.Shift {
	s.mu.RLock()
	out := make([]models.Shift, 0, len(s.shifts))
	for _, sh := range s.shifts {
		out = append(out, sh)
	}
	s.mu.RUnlock()
	sortShifts(out)
	return out
}

// Pending returns the queue in insertion order.
func (s *Scheduler) Pending() []models.Shift {
	return s.pendingCopy()
}

// DayEntry is one shift on a calendar day with its employee.
type DayEntry struct {
	Shift    models.Shift    `json:"shift"`
	Employee models.Employee `json:"employee"`
	Pending  bool            `json:"isPending"`
}

// Day lists published then pending shifts on date. Shifts of unknown
// employees are left out.
func (s *Scheduler) Day(date string) []DayEntry {
	var out []DayEntry
	for _, sh := range s.Shifts() {
		if sh.Date != date {
			continue
		}
		if e, ok := s.employee(sh.EmployeeID); ok {
			sh.IsPending = false
			out = append(out, DayEntry{Shift: sh, Employee: e})
		}
	}
	for _, sh := range s.pendingCopy() {
		if sh.Date != date {
			continue
		}
		if e, ok := s.employee(sh.EmployeeID); ok {
			sh.IsPending = true
			out = append(out, DayEntry{Shift: sh, Employee: e, Pending: true})
		}
	}
	return out
}

func sortShifts(shifts []models.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
