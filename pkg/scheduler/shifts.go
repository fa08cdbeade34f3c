package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

// ShiftInput is the shift form: one shift is created per selected employee.
type ShiftInput struct {
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	EmployeeIDs []string `json:"userIds"`
	SendEmail   bool     `json:"sendEmail"`
}

func (in ShiftInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("shift title is required")
	}
	if len(in.EmployeeIDs) == 0 {
		return invalid("select at least one employee")
	}
	if _, _, err := models.ShiftBounds(in.Date, in.StartTime, in.EndTime, time.UTC); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (in ShiftInput) shift(id, employeeID string) models.Shift {
	return models.Shift{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		EmployeeID: employeeID,
		SendEmail:  in.SendEmail,
	}
}

// CreateShift creates one shift per selected employee. In bulk mode they are
// queued as pending; otherwise each is published right away, with a
// calendar event when the calendar is authorized. Unknown employees are
// skipped.
func (s *Scheduler) CreateShift(ctx context.Context, in ShiftInput) ([]models.Shift, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s.op.Lock()
	defer s.op.Unlock()

	if s.session != nil && s.session.BulkMode() {
		return s.queueShifts(in)
	}

	var created []models.Shift
	for _, empID := range in.EmployeeIDs {
		emp, ok := s.employee(empID)
		if !ok {
			continue
		}
		sh := in.shift(s.newID(), empID)
		sh.CreatedAt = s.now()
		if s.authorized() {
			eventID, err := s.cal.CreateEvent(ctx, sh, emp)
			if err != nil {
				s.logger.Warn("shift saved without calendar event", zap.String("employee", empID), zap.Error(err))
			}
			sh.GoogleEventID = models.StringPtr(eventID)
		}
		if err := s.store.SaveShift(ctx, &sh); err != nil {
			return created, fmt.Errorf("save shift: %w", err)
		}
		s.mu.Lock()
		s.shifts[sh.ID] = sh
		s.mu.Unlock()
		created = append(created, sh)
	}
	s.logger.Info("shifts created", zap.String("date", in.Date), zap.Int("count", len(created)))
	return created, nil
}

func (s *Scheduler) queueShifts(in ShiftInput) ([]models.Shift, error) {
	var queued []models.Shift
	for _, empID := range in.EmployeeIDs {
		if _, ok := s.employee(empID); !ok {
			continue
		}
		sh := in.shift("pending_"+s.newID(), empID)
		sh.CreatedAt = s.now()
		sh.IsPending = true
		queued = append(queued, sh)
	}
	if err := s.savePending(append(s.pendingCopy(), queued...)); err != nil {
		return nil, err
	}
	s.logger.Info("shifts queued", zap.String("date", in.Date), zap.Int("count", len(queued)))
	return queued, nil
}

// UpdateShift rewrites a shift from the form; the first selected employee
// becomes the owner. A published shift gets its calendar event replaced.
func (s *Scheduler) UpdateShift(ctx context.Context, id string, in ShiftInput, pending bool) (models.Shift, error) {
	if err := in.validate(); err != nil {
		return models.Shift{}, err
	}
	s.op.Lock()
	defer s.op.Unlock()

	empID := in.EmployeeIDs[0]
	emp, ok := s.employee(empID)
	if !ok {
		return models.Shift{}, invalid("unknown employee %q", empID)
	}
	now := s.now()

	if pending {
		queue := s.pendingCopy()
		for i, old := range queue {
			if old.ID != id {
				continue
			}
			sh := in.shift(id, empID)
			sh.CreatedAt = old.CreatedAt
			sh.UpdatedAt = &now
			sh.IsPending = true
			queue[i] = sh
			if err := s.savePending(queue); err != nil {
				return models.Shift{}, err
			}
			return sh, nil
		}
		return models.Shift{}, ErrNotFound
	}

	s.mu.RLock()
	old, ok := s.shifts[id]
	s.mu.RUnlock()
	if !ok {
		return models.Shift{}, ErrNotFound
	}

	sh := in.shift(id, empID)
	sh.CreatedAt = old.CreatedAt
	sh.UpdatedAt = &now
	sh.GoogleEventID = old.GoogleEventID
	if s.authorized() {
		if old.Published() {
			if err := s.cal.DeleteEvent(ctx, old.EventID()); err != nil {
				s.logger.Warn("old calendar event not deleted", zap.String("shift", id), zap.Error(err))
			} else {
				sh.GoogleEventID = nil
			}
		}
		eventID, err := s.cal.CreateEvent(ctx, sh, emp)
		if err != nil {
			s.logger.Warn("updated shift has no new calendar event", zap.String("shift", id), zap.Error(err))
		} else {
			sh.GoogleEventID = models.StringPtr(eventID)
		}
	}
	if err := s.store.SaveShift(ctx, &sh); err != nil {
		return models.Shift{}, fmt.Errorf("save shift: %w", err)
	}
	s.mu.Lock()
	s.shifts[id] = sh
	s.mu.Unlock()
	return sh, nil
}

// DeleteShift removes a published or pending shift. Published shifts lose
// their calendar event as well when the calendar is authorized.
func (s *Scheduler) DeleteShift(ctx context.Context, id string, pending, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	s.op.Lock()
	defer s.op.Unlock()

	if pending {
		queue := s.pendingCopy()
		kept := queue[:0]
		for _, sh := range queue {
			if sh.ID != id {
				kept = append(kept, sh)
			}
		}
		if len(kept) == len(queue) {
			return ErrNotFound
		}
		return s.savePending(kept)
	}

	s.mu.RLock()
	sh, ok := s.shifts[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if s.authorized() && sh.Published() {
		if err := s.cal.DeleteEvent(ctx, sh.EventID()); err != nil {
			s.logger.Warn("calendar event left behind", zap.String("shift", id), zap.Error(err))
		}
	}
	if err := s.store.DeleteShift(ctx, id); err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	s.mu.Lock()
	delete(s.shifts, id)
	s.mu.Unlock()
	return nil
}
