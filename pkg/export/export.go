// Package export writes a month of published shifts and the per-employee
// statistics as an Excel workbook.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftcalendar/pkg/models"
	"shiftcalendar/pkg/scheduler"
)

const (
	ScheduleSheet = "Schedule"
	StatsSheet    = "Stats"
	MonthLayout   = "2006-01"
)

var (
	scheduleHeader = []any{"Date", "Weekday", "Employee", "Email", "Title", "Start", "End", "Hours"}
	statsHeader    = []any{"Employee", "Email", "Shifts", "Hours", "Average hours"}
)

// ParseMonth reads YYYY-MM. An empty string means the month of now.
func ParseMonth(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	m, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, want YYYY-MM", s)
	}
	return m, nil
}

// InMonth keeps the shifts dated in month.
func InMonth(shifts []models.Shift, month time.Time) []models.Shift {
	prefix := month.Format(MonthLayout) + "-"
	var out []models.Shift
	for _, sh := range shifts {
		if strings.HasPrefix(sh.Date, prefix) {
			out = append(out, sh)
		}
	}
	return out
}

// FileName is the suggested download name for month.
func FileName(month time.Time) string {
	return "shifts-" + month.Format(MonthLayout) + ".xlsx"
}

// Workbook builds the schedule sheet from shifts, which should already be
// ordered, and the stats sheet from stats. The caller closes the file.
func Workbook(month time.Time, employees []models.Employee, shifts []models.Shift, stats []scheduler.EmployeeStats) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSchedule(f, month, employees, shifts); err != nil {
		f.Close()
		return nil, fmt.Errorf("schedule sheet: %w", err)
	}
	if err := writeStats(f, stats); err != nil {
		f.Close()
		return nil, fmt.Errorf("stats sheet: %w", err)
	}
	return f, nil
}

func writeSchedule(f *excelize.File, month time.Time, employees []models.Employee, shifts []models.Shift) error {
	title := "Shifts " + month.Format("January 2006")
	if err := f.SetCellValue(ScheduleSheet, "A1", title); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ScheduleSheet, "A1", "A1", titleStyle); err != nil {
		return err
	}
	if err := f.MergeCell(ScheduleSheet, "A1", "H1"); err != nil {
		return err
	}
	if err := writeHeader(f, ScheduleSheet, 3, scheduleHeader); err != nil {
		return err
	}

	byID := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	fills := map[string]int{}

	row := 4
	for _, sh := range shifts {
		e, ok := byID[sh.EmployeeID]
		if !ok {
			continue
		}
		day, err := time.Parse(models.DateLayout, sh.Date)
		if err != nil {
			continue
		}
		hours, err := models.ShiftHours(sh.StartTime, sh.EndTime)
		if err != nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{sh.Date, day.Weekday().String(), e.Name, e.Email, sh.Title, sh.StartTime, sh.EndTime, hours}
		if err := f.SetSheetRow(ScheduleSheet, cell, &values); err != nil {
			return err
		}

		style, ok := fills[e.Color]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.Color}},
			})
			if err != nil {
				return err
			}
			fills[e.Color] = style
		}
		name, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(ScheduleSheet, name, name, style); err != nil {
			return err
		}
		row++
	}
	return f.SetColWidth(ScheduleSheet, "C", "E", 22)
}

func writeStats(f *excelize.File, stats []scheduler.EmployeeStats) error {
	if _, err := f.NewSheet(StatsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, StatsSheet, 1, statsHeader); err != nil {
		return err
	}
	for i, st := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{st.Employee.Name, st.Employee.Email, st.TotalShifts, st.TotalHours, st.AverageHours}
		if err := f.SetSheetRow(StatsSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(StatsSheet, "A", "B", 24)
}

func writeHeader(f *excelize.File, sheet string, row int, header []any) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), row)
	return f.SetCellStyle(sheet, cell, last, style)
}
