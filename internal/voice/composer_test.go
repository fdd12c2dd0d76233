package voice

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankar379/medivoice/internal/reminder"
)

func paracetamol() reminder.Assignment {
	return reminder.Assignment{
		ID:           "assign-1",
		PatientID:    "patient-1",
		MedicineName: "Paracetamol",
		Dosage:       "500mg",
		Timings:      []string{"08:00"},
		StartDate:    reminder.DateOf(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)),
		IsActive:     true,
	}
}

func settingsFor(lang string) Settings {
	s := DefaultSettings()
	s.Language = lang
	return s
}

func TestCompose_EnglishAllSegments(t *testing.T) {
	a := paracetamol()
	a.Color = "White"
	a.Shape = "Round"
	a.Instructions = "After food"

	msg := Compose(a, "Asha", settingsFor("en-IN"))
	assert.Equal(t,
		"Hello Asha It's time to take your medicine: Paracetamol, 500mg Color: White, Shape: Round Instructions: After food",
		msg)
}

func TestCompose_HindiColorOnly(t *testing.T) {
	a := paracetamol()
	a.Color = "Red"

	msg := Compose(a, "Asha", settingsFor("hi-IN"))
	assert.True(t, strings.HasPrefix(msg, "नमस्ते Asha "))
	assert.Contains(t, msg, "अब आपकी दवा लेने का समय हो गया है: Paracetamol, 500mg")
	assert.True(t, strings.HasSuffix(msg, " रंग: Red"))
	assert.NotContains(t, msg, "आकार")
	assert.NotContains(t, msg, "निर्देश")
}

func TestCompose_ShapeOnly(t *testing.T) {
	a := paracetamol()
	a.Shape = "Oval"

	msg := Compose(a, "", settingsFor("en-IN"))
	assert.Equal(t, "It's time to take your medicine: Paracetamol, 500mg Shape: Oval", msg)
}

func TestCompose_Greeting(t *testing.T) {
	a := paracetamol()

	s := settingsFor("en-IN")
	s.Personalization.UseName = false
	assert.NotContains(t, Compose(a, "Asha", s), "Hello")

	s.Personalization.UseName = true
	assert.NotContains(t, Compose(a, "   ", s), "Hello")
	assert.True(t, strings.HasPrefix(Compose(a, " Asha ", s), "Hello Asha It's"))
}

func TestCompose_UnknownLanguageFallsBack(t *testing.T) {
	a := paracetamol()
	a.Color = "Blue"
	a.Instructions = "Before sleep"

	for _, lang := range []string{"fr-FR", "", "hi"} {
		assert.Equal(t, Compose(a, "Asha", settingsFor("en-IN")), Compose(a, "Asha", settingsFor(lang)), lang)
	}
}

func TestCompose_NeverBlank(t *testing.T) {
	a := paracetamol()
	for _, lang := range append(Languages(), "xx-XX") {
		for _, name := range []string{"", "Asha"} {
			msg := Compose(a, name, settingsFor(lang))
			assert.NotEmpty(t, strings.TrimSpace(msg), "lang %s name %q", lang, name)
			assert.Contains(t, msg, "Paracetamol")
			assert.Contains(t, msg, "500mg")
		}
	}
}

func TestCatalog_Complete(t *testing.T) {
	require.Equal(t, []string{"en-IN", "hi-IN", "kn-IN", "ml-IN", "ta-IN", "te-IN"}, Languages())

	for _, lang := range Languages() {
		tmpl, ok := Lookup(lang)
		require.True(t, ok, lang)
		require.NotNil(t, tmpl.Greeting, lang)
		require.NotNil(t, tmpl.Reminder, lang)
		assert.Contains(t, tmpl.Greeting("N"), "N", lang)
		assert.Contains(t, tmpl.Reminder("M", "D"), "M, D", lang)
		assert.NotEmpty(t, tmpl.ColorLabel, lang)
		assert.NotEmpty(t, tmpl.ShapeLabel, lang)
		assert.NotEmpty(t, tmpl.InstructionsPrefix, lang)
		assert.NotEmpty(t, TestMessage(lang), lang)
	}

	_, ok := Lookup("de-DE")
	assert.False(t, ok)
	assert.Equal(t, TestMessage("en-IN"), TestMessage("de-DE"))
}
