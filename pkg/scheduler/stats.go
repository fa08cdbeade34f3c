package scheduler

import (
	"math"

	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

type EmployeeStats struct {
	Employee     models.Employee `json:"employee"`
	TotalShifts  int             `json:"totalShifts"`
	TotalHours   float64         `json:"totalHours"`
	AverageHours float64         `json:"averageHours"`
}

// Stats counts published shifts and hours per employee, in employee order.
func (s *Scheduler) Stats() []EmployeeStats {
	return s.StatsFor(s.Shifts())
}

// StatsFor is Stats over an arbitrary set of shifts, e.g. one month.
func (s *Scheduler) StatsFor(shifts []models.Shift) []EmployeeStats {
	employees := s.Employees()
	out := make([]EmployeeStats, len(employees))
	pos := make(map[string]int, len(employees))
	for i, e := range employees {
		out[i].Employee = e
		pos[e.ID] = i
	}
	for _, sh := range shifts {
		i, ok := pos[sh.EmployeeID]
		if !ok {
			continue
		}
		hours, err := models.ShiftHours(sh.StartTime, sh.EndTime)
		if err != nil {
			s.logger.Debug("shift hours unreadable", zap.String("shift", sh.ID), zap.Error(err))
			continue
		}
		out[i].TotalShifts++
		out[i].TotalHours += hours
	}
	for i := range out {
		if out[i].TotalShifts > 0 {
			out[i].AverageHours = round1(out[i].TotalHours / float64(out[i].TotalShifts))
		}
		out[i].TotalHours = round1(out[i].TotalHours)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
