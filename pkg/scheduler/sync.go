package scheduler

import (
	"context"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shiftcalendar/pkg/models"
)

// SnapshotSource publishes full-collection states of the remote store.
type SnapshotSource interface {
	EmployeeSnapshots(ctx context.Context) iter.Seq2[[]models.Employee, error]
	ShiftSnapshots(ctx context.Context) iter.Seq2[[]models.Shift, error]
}

// ApplyEmployees replaces the employee collection. Records are de-duplicated
// by id: the first occurrence keeps its position, the last one wins.
func (s *Scheduler) ApplyEmployees(snapshot []models.Employee) {
	pos := make(map[string]int, len(snapshot))
	out := make([]models.Employee, 0, len(snapshot))
	for _, e := range snapshot {
		if e.ID == "" {
			continue
		}
		if i, ok := pos[e.ID]; ok {
			out[i] = e
			continue
		}
		pos[e.ID] = len(out)
		out = append(out, e)
	}
	s.mu.Lock()
	s.employees = out
	s.mu.Unlock()
}

// ApplyShifts replaces the published shift collection.
func (s *Scheduler) ApplyShifts(snapshot []models.Shift) {
	shifts := make(map[string]models.Shift, len(snapshot))
	for _, sh := range snapshot {
		if sh.ID == "" {
			continue
		}
		sh.IsPending = false
		shifts[sh.ID] = sh
	}
	s.mu.Lock()
	s.shifts = shifts
	s.mu.Unlock()
}

// Watch applies snapshots from src until ctx ends. Errors from the source
// are logged; the source reconnects on its own.
func (s *Scheduler) Watch(ctx context.Context, src SnapshotSource) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for employees, err := range src.EmployeeSnapshots(ctx) {
			if err != nil {
				s.logger.Warn("employee subscription interrupted", zap.Error(err))
				continue
			}
			s.ApplyEmployees(employees)
			s.logger.Debug("employees snapshot", zap.Int("count", len(employees)))
		}
		return ctx.Err()
	})
	g.Go(func() error {
		for shifts, err := range src.ShiftSnapshots(ctx) {
			if err != nil {
				s.logger.Warn("shift subscription interrupted", zap.Error(err))
				continue
			}
			s.ApplyShifts(shifts)
			s.logger.Debug("shifts snapshot", zap.Int("count", len(shifts)))
		}
		return ctx.Err()
	})
	return g.Wait()
}
