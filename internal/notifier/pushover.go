package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pushoverAPI = "https://api.pushover.net/1/messages.json"

// PushoverConfig configures the optional phone-push sink. Leaving either
// key blank disables it.
type PushoverConfig struct {
	AppToken string
	UserKey  string
	Timeout  time.Duration
}

// Pushover sends short phone pushes through the Pushover message API.
type Pushover struct {
	cfg  PushoverConfig
	http *http.Client
	api  string
}

func NewPushover(cfg PushoverConfig) *Pushover {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pushover{cfg: cfg, http: &http.Client{Timeout: timeout}, api: pushoverAPI}
}

func (p *Pushover) enabled() bool {
	return strings.TrimSpace(p.cfg.AppToken) != "" && strings.TrimSpace(p.cfg.UserKey) != ""
}

func (p *Pushover) Notify(ctx context.Context, ev Event) error {
	if !p.enabled() {
		return nil
	}

	var body string
	switch ev.Kind {
	case KindReminder:
		body = fmt.Sprintf("%s shift for %s starts soon", ev.Title, ev.IGN)
	case KindExpired:
		body = fmt.Sprintf("%s expired for %s", ev.Title, ev.IGN)
	case KindHandoff:
		body = fmt.Sprintf("%s handed off to %s", ev.Title, ev.IGN)
	case KindReleased:
		body = fmt.Sprintf("%s released from %s", ev.Title, ev.IGN)
	default:
		body = fmt.Sprintf("%s requested by %s %s", ev.Title, ev.IGN, ev.Coords)
	}

	form := url.Values{
		"token":   {p.cfg.AppToken},
		"user":    {p.cfg.UserKey},
		"title":   {"Titles"},
		"message": {body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.api,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("pushover post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pushover post: status %s", resp.Status)
	}
	return nil
}
