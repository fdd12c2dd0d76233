package voice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankar379/medivoice/internal/reminder"
)

func TestSettingsFromProfile(t *testing.T) {
	assert.Equal(t, DefaultSettings(), SettingsFromProfile(nil))
	assert.Equal(t, DefaultSettings(), SettingsFromProfile(&reminder.Profile{PatientID: "p"}))
	assert.Equal(t, DefaultSettings(), SettingsFromProfile(&reminder.Profile{VoiceSettings: json.RawMessage("null")}))
	assert.Equal(t, DefaultSettings(), SettingsFromProfile(&reminder.Profile{VoiceSettings: json.RawMessage("{broken")}))

	s := SettingsFromProfile(&reminder.Profile{VoiceSettings: json.RawMessage(`{"language":"ta-IN","voice_type":"male"}`)})
	assert.Equal(t, "ta-IN", s.Language)
	assert.Equal(t, VoiceMale, s.VoiceType)
	assert.Equal(t, 1.0, s.Volume, "unset fields keep defaults")
	assert.True(t, s.Personalization.UseName)
}

func TestSettings_RawRoundTrip(t *testing.T) {
	s := settingsFor("kn-IN")
	s.Rate = 1.5

	got := SettingsFromProfile(&reminder.Profile{VoiceSettings: s.Raw()})
	assert.Equal(t, s, got)
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	tests := map[string]func(*Settings){
		"volume":     func(s *Settings) { s.Volume = 1.5 },
		"rate":       func(s *Settings) { s.Rate = 0 },
		"pitch":      func(s *Settings) { s.Pitch = 3 },
		"voice_type": func(s *Settings) { s.VoiceType = "robot" },
	}
	for field, mutate := range tests {
		s := DefaultSettings()
		mutate(&s)

		var verr *reminder.ValidationError
		require.ErrorAs(t, s.Validate(), &verr, field)
		assert.Equal(t, "voice_settings."+field, verr.Field)
	}
}

func TestEspeakFlags(t *testing.T) {
	s := settingsFor("hi-IN")
	s.Volume = 0.5
	s.Rate = 2
	s.Pitch = 1

	assert.Equal(t, []string{"-v", "hi+f3", "-a", "50", "-s", "350", "-p", "50"}, espeakFlags(s))

	s = settingsFor("pt-BR")
	s.VoiceType = VoiceMale
	s.Rate = 0
	assert.Equal(t, []string{"-v", "en+m3", "-a", "100", "-s", "175", "-p", "50"}, espeakFlags(s))
}
