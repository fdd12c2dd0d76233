package voice

import (
	"strings"

	"github.com/shankar379/medivoice/internal/reminder"
)

// Compose builds the spoken reminder for an assignment. Segments are
// greeting, medicine and dosage, color and shape, instructions; empty
// segments are skipped. The medicine segment is always present.
func Compose(a reminder.Assignment, userName string, s Settings) string {
	t, _ := Lookup(s.Language)

	segments := make([]string, 0, 4)
	if s.Personalization.UseName && strings.TrimSpace(userName) != "" {
		segments = append(segments, t.Greeting(strings.TrimSpace(userName)))
	}

	segments = append(segments, t.Reminder(a.MedicineName, a.Dosage))

	if cs := colorShape(t, a.Color, a.Shape); cs != "" {
		segments = append(segments, cs)
	}

	if instructions := strings.TrimSpace(a.Instructions); instructions != "" {
		segments = append(segments, t.InstructionsPrefix+instructions)
	}

	return strings.Join(segments, " ")
}

func colorShape(t Templates, color, shape string) string {
	color = strings.TrimSpace(color)
	shape = strings.TrimSpace(shape)

	var parts []string
	if color != "" {
		parts = append(parts, t.ColorLabel+": "+color)
	}
	if shape != "" {
		parts = append(parts, t.ShapeLabel+": "+shape)
	}
	return strings.Join(parts, ", ")
}

// TestMessage returns the phrase used to preview a voice.
func TestMessage(lang string) string {
	t, _ := Lookup(lang)
	return t.TestMessage
}
