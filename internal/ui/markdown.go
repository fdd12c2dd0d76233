package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/shankar379/medivoice/internal/reminder"
)

// TodayMarkdown renders a patient's reminders for the day as a markdown
// table. assignments is keyed by assignment id.
func TodayMarkdown(patientID string, day reminder.Date, reminders []reminder.Reminder, assignments map[string]reminder.Assignment, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Today's medicines\n\n**Patient:** %s  \n**Date:** %s\n\n", patientID, day)

	if len(reminders) == 0 {
		sb.WriteString("_No pending reminders._\n")
		return sb.String()
	}

	sb.WriteString("| # | Time | Medicine | Dosage | Status |\n")
	sb.WriteString("|---|------|----------|--------|--------|\n")
	for i, r := range reminders {
		a := assignments[r.AssignmentID]
		status := string(r.Status)
		if r.SnoozeCount > 0 {
			status = fmt.Sprintf("%s (%d)", status, r.SnoozeCount)
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
			i+1,
			r.ScheduledTime.In(loc).Format("15:04"),
			escapeCell(a.MedicineName),
			escapeCell(a.Dosage),
			status)
	}

	var notes []string
	for _, r := range reminders {
		a, ok := assignments[r.AssignmentID]
		if ok && a.Instructions != "" {
			notes = append(notes, fmt.Sprintf("- **%s:** %s", a.MedicineName, a.Instructions))
		}
	}
	if len(notes) > 0 {
		sb.WriteString("\n## Instructions\n\n")
		sb.WriteString(strings.Join(dedupe(notes), "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderMarkdown renders markdown for the terminal, returning the input
// unchanged when rendering fails.
func RenderMarkdown(content string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
