package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shankar379/medivoice/internal/reminder"
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // Warm yellow

	SystemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("183")). // Soft purple
			Italic(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Medium gray
			Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")). // Green
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")). // Yellow
			Bold(true)

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147")) // Light purple
)

// statusStyles colours each reminder status badge.
var statusStyles = map[reminder.Status]lipgloss.Style{
	reminder.StatusScheduled: AccentStyle,
	reminder.StatusSnoozed:   WarningStyle,
	reminder.StatusTaken:     SuccessStyle,
	reminder.StatusMissed:    ErrorStyle,
}

type Formatter struct {
	colored bool
	loc     *time.Location
}

// NewFormatter creates a Formatter. Times are shown in loc.
func NewFormatter(colored bool, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{colored: colored, loc: loc}
}

func (f *Formatter) render(style lipgloss.Style, s string) string {
	if f.colored {
		return style.Render(s)
	}
	return s
}

func (f *Formatter) FormatError(err error) string {
	return f.render(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.render(InfoStyle, info)
}

func (f *Formatter) FormatSystem(msg string) string {
	return f.render(SystemStyle, msg)
}

func (f *Formatter) FormatStatus(msg string) string {
	return f.render(StatusStyle, msg)
}

func (f *Formatter) FormatSuccess(msg string) string {
	return f.render(SuccessStyle, "✓ ") + msg
}

// FormatReminder renders one numbered line of the today list, e.g.
// "1. 08:00  Paracetamol 500mg  [scheduled]".
func (f *Formatter) FormatReminder(n int, r reminder.Reminder, a *reminder.Assignment) string {
	medicine := r.AssignmentID
	dosage := ""
	if a != nil {
		medicine = a.MedicineName
		dosage = a.Dosage
	}

	badge := "[" + string(r.Status) + "]"
	if r.SnoozeCount > 0 {
		badge = fmt.Sprintf("[%s x%d]", r.Status, r.SnoozeCount)
	}
	if style, ok := statusStyles[r.Status]; ok {
		badge = f.render(style, badge)
	}

	line := fmt.Sprintf("%s %s  %s",
		f.render(DimStyle, fmt.Sprintf("%d.", n)),
		f.render(HeaderStyle, r.ScheduledTime.In(f.loc).Format("15:04")),
		medicine)
	if dosage != "" {
		line += " " + dosage
	}
	return line + "  " + badge
}

func (f *Formatter) FormatWelcome(patientID, language string) string {
	title := "MediVoice"
	patientLine := "Patient: " + patientID
	langLine := "Voice: " + language
	helpLine := "Type /help for commands"

	if !f.colored {
		return strings.Join([]string{"", title, patientLine, langLine, helpLine, ""}, "\n")
	}

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("114"))

	topBorder := borderStyle.Render("╭─────────────────────────────────────────╮")
	bottomBorder := borderStyle.Render("╰─────────────────────────────────────────╯")
	sideBorder := borderStyle.Render("│")

	padLine := func(content string, width int) string {
		contentLen := lipgloss.Width(content)
		if contentLen < width {
			return content + strings.Repeat(" ", width-contentLen)
		}
		return content
	}

	boxWidth := 39
	lines := []string{
		"",
		topBorder,
		sideBorder + " " + padLine(HeaderStyle.Render("💊 "+title), boxWidth) + " " + sideBorder,
		sideBorder + " " + padLine(labelStyle.Render("Patient: ")+valueStyle.Render(patientID), boxWidth) + " " + sideBorder,
		sideBorder + " " + padLine(labelStyle.Render("Voice: ")+valueStyle.Render(language), boxWidth) + " " + sideBorder,
		sideBorder + " " + padLine("", boxWidth) + " " + sideBorder,
		sideBorder + " " + padLine(StatusStyle.Render(helpLine), boxWidth) + " " + sideBorder,
		bottomBorder,
		"",
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) FormatHelp() string {
	commands := [][2]string{
		{"/today", "List today's pending reminders"},
		{"/take [n]", "Mark reminder n as taken"},
		{"/snooze [n]", "Snooze reminder n"},
		{"/speak [n]", "Speak reminder n"},
		{"/stop", "Stop speaking"},
		{"/lang <code>", "Switch voice language"},
		{"/help", "Show this help"},
		{"/quit", "Exit"},
	}

	if !f.colored {
		lines := []string{"", "Commands:"}
		for _, c := range commands {
			lines = append(lines, fmt.Sprintf("  %-16s - %s", c[0], c[1]))
		}
		return strings.Join(append(lines, ""), "\n") + "\n"
	}

	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	lines := []string{"", HeaderStyle.Render("Commands"), ""}
	for _, c := range commands {
		lines = append(lines, "  "+cmdStyle.Render(fmt.Sprintf("%-16s", c[0]))+" "+descStyle.Render(c[1]))
	}
	lines = append(lines,
		"",
		HeaderStyle.Render("Tips"),
		DimStyle.Render("  Omit n to pick from a menu"),
		DimStyle.Render("  Ctrl+C or Ctrl+D to exit"),
		"")
	return strings.Join(lines, "\n") + "\n"
}

// FormatPrompt returns the console input prompt.
func (f *Formatter) FormatPrompt() string {
	if f.colored {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render("medivoice") +
			lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true).Render(" > ")
	}
	return "medivoice > "
}
