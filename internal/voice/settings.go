package voice

import (
	"encoding/json"
	"fmt"

	"github.com/shankar379/medivoice/internal/reminder"
)

// Voice types.
const (
	VoiceMale   = "male"
	VoiceFemale = "female"
)

// Personalization controls how much of the patient's identity is spoken.
type Personalization struct {
	UseName        bool   `json:"use_name"`
	UseGender      bool   `json:"use_gender"`
	CustomGreeting string `json:"custom_greeting,omitempty"`
}

// Settings is a user's voice preference record.
type Settings struct {
	Language        string          `json:"language"`
	VoiceType       string          `json:"voice_type"`
	Volume          float64         `json:"volume"`
	Rate            float64         `json:"rate"`
	Pitch           float64         `json:"pitch"`
	Enabled         bool            `json:"enabled"`
	Personalization Personalization `json:"personalization"`
}

// DefaultSettings returns the settings a new patient starts with.
func DefaultSettings() Settings {
	return Settings{
		Language:  DefaultLanguage,
		VoiceType: VoiceFemale,
		Volume:    1.0,
		Rate:      1.0,
		Pitch:     1.0,
		Enabled:   true,
		Personalization: Personalization{
			UseName: true,
		},
	}
}

// Validate checks the numeric ranges and voice type.
func (s Settings) Validate() error {
	if s.Volume < 0 || s.Volume > 1 {
		return invalid("volume", fmt.Sprintf("must be between 0 and 1, got %v", s.Volume))
	}
	if s.Rate <= 0 || s.Rate > 2 {
		return invalid("rate", fmt.Sprintf("must be in (0, 2], got %v", s.Rate))
	}
	if s.Pitch <= 0 || s.Pitch > 2 {
		return invalid("pitch", fmt.Sprintf("must be in (0, 2], got %v", s.Pitch))
	}
	switch s.VoiceType {
	case "", VoiceMale, VoiceFemale:
	default:
		return invalid("voice_type", fmt.Sprintf("unknown voice type %q", s.VoiceType))
	}
	return nil
}

func invalid(field, reason string) error {
	return &reminder.ValidationError{Field: "voice_settings." + field, Reason: reason}
}

// Raw encodes s for storage in a reminder.Profile.
func (s Settings) Raw() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

// SettingsFromProfile decodes a profile's stored settings. A missing
// profile or undecodable record yields DefaultSettings.
func SettingsFromProfile(p *reminder.Profile) Settings {
	s := DefaultSettings()
	if p == nil || len(p.VoiceSettings) == 0 || string(p.VoiceSettings) == "null" {
		return s
	}
	if err := json.Unmarshal(p.VoiceSettings, &s); err != nil {
		return DefaultSettings()
	}
	return s
}
