package report

import (
	"sort"
	"time"

	"github.com/shankar379/medivoice/internal/reminder"
)

// Summary counts a patient's reminder outcomes up to a point in time.
type Summary struct {
	PatientID string  `json:"patient_id"`
	Due       int     `json:"due"`
	Taken     int     `json:"taken"`
	Missed    int     `json:"missed"`
	Snoozed   int     `json:"snoozed"`
	Pending   int     `json:"pending"`
	Upcoming  int     `json:"upcoming"`
	Adherence float64 `json:"adherence"`
}

// MedicineSummary is a Summary restricted to one assignment.
type MedicineSummary struct {
	Assignment reminder.Assignment `json:"assignment"`
	Summary    Summary             `json:"summary"`
}

// Summarize counts reminders against now. A reminder is due once its
// scheduled time has passed or it has been taken or missed. Adherence is the
// percentage of due reminders that were taken.
func Summarize(patientID string, reminders []reminder.Reminder, now time.Time) Summary {
	s := Summary{PatientID: patientID}
	for _, r := range reminders {
		if r.Status.Pending() && r.ScheduledTime.After(now) {
			s.Upcoming++
			continue
		}
		s.Due++
		switch r.Status {
		case reminder.StatusTaken:
			s.Taken++
		case reminder.StatusMissed:
			s.Missed++
		case reminder.StatusSnoozed:
			s.Snoozed++
			s.Pending++
		default:
			s.Pending++
		}
	}
	if s.Due > 0 {
		s.Adherence = float64(s.Taken) * 100 / float64(s.Due)
	}
	return s
}

// ByMedicine groups reminders by assignment and summarises each group.
// Assignments are ordered by medicine name.
func ByMedicine(assignments []reminder.Assignment, reminders []reminder.Reminder, now time.Time) []MedicineSummary {
	grouped := make(map[string][]reminder.Reminder)
	for _, r := range reminders {
		grouped[r.AssignmentID] = append(grouped[r.AssignmentID], r)
	}

	out := make([]MedicineSummary, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, MedicineSummary{
			Assignment: a,
			Summary:    Summarize(a.PatientID, grouped[a.ID], now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Assignment.MedicineName < out[j].Assignment.MedicineName
	})
	return out
}
