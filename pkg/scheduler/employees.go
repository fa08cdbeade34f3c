package scheduler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

type NewEmployee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Color string `json:"color"`
}

// AddEmployee validates the form and writes the new employee to the store.
// Email duplicates are matched case-insensitively; names may repeat.
func (s *Scheduler) AddEmployee(ctx context.Context, in NewEmployee) (models.Employee, error) {
	s.op.Lock()
	defer s.op.Unlock()

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return models.Employee{}, invalid("name and email are required")
	}
	if !models.ValidEmail(email) {
		return models.Employee{}, invalid("invalid email %q", email)
	}
	for _, e := range s.Employees() {
		if strings.EqualFold(e.Email, email) {
			return models.Employee{}, invalid("an employee with email %s already exists", email)
		}
	}
	color := in.Color
	if color == "" {
		color = models.DefaultColor
	}
	if !models.ValidColor(color) {
		return models.Employee{}, invalid("color %q is not in the palette", color)
	}

	e := models.Employee{
		ID:        s.newID(),
		Name:      name,
		Email:     email,
		Color:     strings.ToLower(color),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.store.SaveEmployee(ctx, &e); err != nil {
		return models.Employee{}, fmt.Errorf("save employee: %w", err)
	}

	s.mu.Lock()
	s.employees = append(s.employees, e)
	s.mu.Unlock()
	s.logger.Info("employee added", zap.String("id", e.ID), zap.String("name", e.Name))
	return e, nil
}

// DeleteEmployee removes the employee together with all of their published
// and pending shifts. Unknown ids are a no-op.
func (s *Scheduler) DeleteEmployee(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	s.op.Lock()
	defer s.op.Unlock()

	if _, ok := s.employee(id); !ok {
		return nil
	}

	var owned []models.Shift
	for _, sh := range s.Shifts() {
		if sh.EmployeeID == id {
			owned = append(owned, sh)
		}
	}
	if s.authorized() {
		for _, sh := range owned {
			if sh.Published() {
				if err := s.cal.DeleteEvent(ctx, sh.EventID()); err != nil {
					s.logger.Warn("calendar event left behind", zap.String("shift", sh.ID), zap.Error(err))
				}
			}
		}
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}

	s.mu.Lock()
	kept := s.employees[:0:0]
	for _, e := range s.employees {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.employees = kept
	for _, sh := range owned {
		delete(s.shifts, sh.ID)
	}
	var pending []models.Shift
	for _, sh := range s.pending {
		if sh.EmployeeID != id {
			pending = append(pending, sh)
		}
	}
	s.mu.Unlock()

	if err := s.savePending(pending); err != nil {
		return err
	}
	s.logger.Info("employee deleted", zap.String("id", id), zap.Int("shifts", len(owned)))
	return nil
}
