package config

// Config is titlekeeper's file configuration. All durations are Go
// duration strings (e.g. "500ms", "10s", "1m").
//
// Secrets (bot token, webhook URL, pushover keys) may be left blank here
// and provided through the environment instead; see env.go.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Notify    NotifyConfig    `json:"notify"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Web       WebConfig       `json:"web"`
	Icons     IconsConfig     `json:"icons"`
}

type TelegramConfig struct {
	Token        string  `json:"token,omitempty"`
	AdminUserIDs []int64 `json:"admin_user_ids"`
	PollTimeout  string  `json:"poll_timeout,omitempty"` // default "10s"
}

type NotifyConfig struct {
	WebhookURL        string `json:"webhook_url,omitempty"`
	GuardianRoleID    int64  `json:"guardian_role_id,omitempty"`
	RequestsChannelID int64  `json:"requests_channel_id,omitempty"`
	PushoverAppToken  string `json:"pushover_app_token,omitempty"`
	PushoverUserKey   string `json:"pushover_user_key,omitempty"`
	RatePerSec        int    `json:"rate_per_sec,omitempty"`   // default 3
	SendTimeout       string `json:"send_timeout,omitempty"`   // default "15s"
	WebhookTimeout    string `json:"webhook_timeout,omitempty"` // default "10s"
}

type SchedulerConfig struct {
	TickInterval string `json:"tick_interval,omitempty"` // default "60s"
	ShiftHours   int    `json:"shift_hours,omitempty"`   // default 3
	ReminderLead string `json:"reminder_lead,omitempty"` // default "5m"
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"` // default "INFO"
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // default "sqlite"
	Path        string `json:"path,omitempty"`   // default "./data/titles.db"
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default ":8080"
}

type IconsConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`     // default "./data/static/icons"
	Timeout string `json:"timeout,omitempty"` // default "15s"
}
