// Package icons fetches title icon images at startup so the web dashboard
// can serve them locally instead of hotlinking.
package icons

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"titlekeeper/internal/catalog"
	logx "titlekeeper/pkg/logx"
)

type Config struct {
	Dir     string
	Timeout time.Duration
}

type Downloader struct {
	dir    string
	client *http.Client
	log    logx.Logger
}

func NewDownloader(cfg Config, log logx.Logger) *Downloader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Downloader{
		dir:    cfg.Dir,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// EnsureAll downloads every catalog icon that is not already on disk.
// Failures are logged and skipped; one bad URL must not block startup.
func (d *Downloader) EnsureAll(ctx context.Context) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create icon dir: %w", err)
	}
	for _, t := range catalog.All() {
		if t.IconFilename == "" || t.ImageURL == "" {
			continue
		}
		dest := filepath.Join(d.dir, t.IconFilename)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := d.fetch(ctx, t.ImageURL, dest); err != nil {
			d.log.Warn("icon download failed",
				logx.String("title", t.Name),
				logx.String("url", t.ImageURL),
				logx.Err(err))
			continue
		}
		d.log.Debug("icon downloaded",
			logx.String("title", t.Name),
			logx.String("file", t.IconFilename))
	}
	return nil
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never leaves a
	// truncated icon behind.
	tmp, err := os.CreateTemp(d.dir, ".icon-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
