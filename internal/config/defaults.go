package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"store": map[string]interface{}{
			"driver": DriverSQLite,
			"path":   "~/.medivoice/medivoice.db",
		},
		"redis": map[string]interface{}{
			"addr":       "",
			"password":   "",
			"db":         0,
			"key_prefix": "medivoice:",
		},
		"reminders": map[string]interface{}{
			"horizon_days": 7,
			"timezone":     "",
			"missed": map[string]interface{}{
				"enabled":       false,
				"grace_minutes": 60,
			},
		},
		"scheduler": map[string]interface{}{
			"enabled":   false,
			"interval":  60,
			"re_expand": true,
			"notify":    true,
			"speak":     false,
		},
		"telegram": map[string]interface{}{
			"bot_token": "",
			"chat_id":   "",
			"base_url":  "https://api.telegram.org",
		},
		"mqtt": map[string]interface{}{
			"broker":    "",
			"client_id": "medivoice",
			"username":  "",
			"password":  "",
			"topic":     "medivoice/patients/%s/reminders",
			"qos":       1,
		},
		"voice": map[string]interface{}{
			"command":          "espeak-ng",
			"args":             []string{},
			"default_language": "en-IN",
		},
		"http": map[string]interface{}{
			"addr": ":8080",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "json",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.medivoice/config.yaml"
}
