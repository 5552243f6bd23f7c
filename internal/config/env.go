package config

import "os"

// Environment variables that override the corresponding config fields.
// Kept out of the config file so secrets can live in a .env file or the
// unit environment.
const (
	envTelegramToken    = "TELEGRAM_TOKEN"
	envWebhookURL       = "WEBHOOK_URL"
	envPushoverAppToken = "PUSHOVER_APP_TOKEN"
	envPushoverUserKey  = "PUSHOVER_USER_KEY"
)

// resolveEnv overlays secret fields from the environment. Env values win
// over file values when set.
func resolveEnv(cfg *Config) {
	if v := os.Getenv(envTelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(envWebhookURL); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv(envPushoverAppToken); v != "" {
		cfg.Notify.PushoverAppToken = v
	}
	if v := os.Getenv(envPushoverUserKey); v != "" {
		cfg.Notify.PushoverUserKey = v
	}
}
