package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shankar379/medivoice/internal/reminder"
)

const (
	remindersSheet = "Reminders"
	summarySheet   = "Summary"
)

// ReminderHeader is the header row of the reminders sheet.
var ReminderHeader = []string{
	"Medicine",
	"Dosage",
	"Scheduled",
	"Status",
	"Taken At",
	"Snoozes",
	"Voice Played",
	"Notified",
}

// SummaryHeader is the header row of the summary sheet.
var SummaryHeader = []string{
	"Medicine",
	"Due",
	"Taken",
	"Missed",
	"Snoozed",
	"Pending",
	"Upcoming",
	"Adherence %",
}

var reminderColumnWidths = []float64{25, 15, 20, 12, 20, 10, 14, 10}

// Workbook renders a patient's reminders and adherence summary as an xlsx
// file. Times are written in loc.
func Workbook(assignments []reminder.Assignment, reminders []reminder.Reminder, now time.Time, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly.

	index, err := f.NewSheet(remindersSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, sheet := range []struct {
		name    string
		headers []string
	}{{remindersSheet, ReminderHeader}, {summarySheet, SummaryHeader}} {
		if err := writeHeader(f, sheet.name, sheet.headers, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, width := range reminderColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(remindersSheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	byID := make(map[string]reminder.Assignment, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
	}

	sorted := make([]reminder.Reminder, len(reminders))
	copy(sorted, reminders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledTime.Before(sorted[j].ScheduledTime)
	})

	for i, r := range sorted {
		a := byID[r.AssignmentID]
		takenAt := ""
		if r.TakenTime != nil {
			takenAt = r.TakenTime.In(loc).Format("2006-01-02 15:04")
		}
		values := []interface{}{
			a.MedicineName,
			a.Dosage,
			r.ScheduledTime.In(loc).Format("2006-01-02 15:04"),
			string(r.Status),
			takenAt,
			r.SnoozeCount,
			yesNo(r.VoicePlayed),
			yesNo(r.NotificationSent),
		}
		if err := writeRow(f, remindersSheet, i+2, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, m := range ByMedicine(assignments, reminders, now) {
		s := m.Summary
		values := []interface{}{
			m.Assignment.MedicineName,
			s.Due,
			s.Taken,
			s.Missed,
			s.Snoozed,
			s.Pending,
			s.Upcoming,
			fmt.Sprintf("%.1f", s.Adherence),
		}
		if err := writeRow(f, summarySheet, i+2, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := f.SetPanes(remindersSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, value := range values {
		if value == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
