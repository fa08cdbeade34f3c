package scheduler

import (
	"context"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

// Report summarizes one bulk publish run.
type Report struct {
	Published    int      `json:"published"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	PublishedIDs []string `json:"publishedIds"`
}

// PublishPending moves the selected pending shifts into the published set,
// one calendar event and one store write at a time. Items that fail stay
// queued; the queue is written back once after the whole batch.
func (s *Scheduler) PublishPending(ctx context.Context, ids []string) (Report, error) {
	var rep Report
	if len(ids) == 0 {
		return rep, ErrNothingSelected
	}
	if !s.authorized() {
		return rep, ErrNotAuthorized
	}
	s.op.Lock()
	defer s.op.Unlock()

	queue := s.pendingCopy()
	index := make(map[string]int, len(queue))
	for i, sh := range queue {
		index[sh.ID] = i
	}
	done := make(map[string]bool, len(ids))

	for _, id := range ids {
		if done[id] {
			continue
		}
		done[id] = true

		i, ok := index[id]
		if !ok {
			rep.Skipped++
			continue
		}
		pending := queue[i]
		emp, ok := s.employee(pending.EmployeeID)
		if !ok {
			rep.Skipped++
			continue
		}

		eventID, err := s.cal.CreateEvent(ctx, pending, emp)
		if err != nil {
			s.logger.Warn("publish failed", zap.String("pending", id), zap.Error(err))
			rep.Failed++
			continue
		}

		sh := pending
		sh.ID = s.newID()
		sh.GoogleEventID = models.StringPtr(eventID)
		sh.CreatedAt = s.now()
		sh.IsPending = false
		if err := s.store.SaveShift(ctx, &sh); err != nil {
			s.logger.Error("published event not stored", zap.String("pending", id),
				zap.String("event", eventID), zap.Error(err))
			// the shift stays pending, so its event must not outlive this run
			if derr := s.cal.DeleteEvent(ctx, eventID); derr != nil {
				s.logger.Warn("orphaned calendar event left behind", zap.String("event", eventID), zap.Error(derr))
			}
			rep.Failed++
			continue
		}

		s.mu.Lock()
		s.shifts[sh.ID] = sh
		s.mu.Unlock()
		rep.Published++
		rep.PublishedIDs = append(rep.PublishedIDs, id)
	}

	published := make(map[string]bool, len(rep.PublishedIDs))
	for _, id := range rep.PublishedIDs {
		published[id] = true
	}
	remaining := make([]models.Shift, 0, len(queue)-len(published))
	for _, sh := range queue {
		if !published[sh.ID] {
			remaining = append(remaining, sh)
		}
	}
	if err := s.savePending(remaining); err != nil {
		return rep, err
	}

	s.logger.Info("bulk publish finished",
		zap.Int("published", rep.Published),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("still_pending", len(remaining)))
	return rep, nil
}
