package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const embedColor = 5814783

// WebhookConfig configures the Discord-style webhook sink.
type WebhookConfig struct {
	URL               string
	GuardianRoleID    int64 // role to @mention, 0 disables the mention
	RequestsChannelID int64 // channel tag in the message body, 0 omits it
	ShiftHours        int
	ReminderLeadMins  int
	Timeout           time.Duration
}

// Webhook posts formatted embed payloads to a Discord-compatible webhook.
type Webhook struct {
	cfg  WebhookConfig
	http *http.Client
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type webhookEmbed struct {
	Title     string              `json:"title"`
	Color     int                 `json:"color"`
	Fields    []webhookEmbedField `json:"fields"`
	Timestamp string              `json:"timestamp,omitempty"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Content         string         `json:"content"`
	AllowedMentions map[string]any `json:"allowed_mentions"`
	Embeds          []webhookEmbed `json:"embeds"`
}

func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if strings.TrimSpace(w.cfg.URL) == "" {
		return nil
	}

	payload := w.buildPayload(ev)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook post: status %s", resp.Status)
	}
	return nil
}

func (w *Webhook) buildPayload(ev Event) webhookPayload {
	roleTag := ""
	if w.cfg.GuardianRoleID != 0 {
		roleTag = fmt.Sprintf("<@&%d> ", w.cfg.GuardianRoleID)
	}
	channelTag := ""
	if w.cfg.RequestsChannelID != 0 {
		channelTag = fmt.Sprintf("<#%d> ", w.cfg.RequestsChannelID)
	}
	mention := roleTag + channelTag

	var title, content string
	switch ev.Kind {
	case KindReminder:
		title = fmt.Sprintf("Reminder: %s shift starts soon!", ev.Title)
		content = fmt.Sprintf("%sThe %d-hour shift for **%s** by **%s** starts in %d minutes!",
			mention, w.cfg.ShiftHours, ev.Title, ev.IGN, w.cfg.ReminderLeadMins)
	case KindExpired:
		title = fmt.Sprintf("%s has expired", ev.Title)
		content = fmt.Sprintf("%s**%s** has expired for **%s**.", mention, ev.Title, ev.IGN)
	case KindHandoff:
		title = fmt.Sprintf("Scheduled handoff: %s", ev.Title)
		content = fmt.Sprintf("%s**%s** now holds **%s** for the booked %d-hour shift.",
			mention, ev.IGN, ev.Title, w.cfg.ShiftHours)
	case KindReleased:
		title = fmt.Sprintf("%s released", ev.Title)
		content = fmt.Sprintf("%s**%s** was released from **%s**.", mention, ev.Title, ev.IGN)
	default: // KindRequest
		title = "New Title Request"
		content = mention + "A new request was submitted."
	}

	fields := []webhookEmbedField{
		{Name: "Title", Value: orDash(ev.Title), Inline: true},
		{Name: "In-Game Name", Value: orDash(ev.IGN), Inline: true},
		{Name: "Coordinates", Value: orDash(ev.Coords), Inline: true},
	}
	if ev.By != "" {
		fields = append(fields, webhookEmbedField{Name: "Submitted By", Value: ev.By})
	}

	ts := ""
	if !ev.At.IsZero() {
		ts = ev.At.UTC().Format(time.RFC3339)
	}

	return webhookPayload{
		Content:         content,
		AllowedMentions: map[string]any{"parse": []string{"roles"}},
		Embeds: []webhookEmbed{{
			Title:     title,
			Color:     embedColor,
			Fields:    fields,
			Timestamp: ts,
		}},
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
