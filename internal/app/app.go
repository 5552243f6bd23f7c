// Package app assembles and runs the whole service: config, logging,
// storage, the title scheduler, the reconciliation tick and the chat/web
// surfaces.
package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/config"
	"titlekeeper/internal/icons"
	"titlekeeper/internal/notifier"
	"titlekeeper/internal/storage"
	"titlekeeper/internal/titles"
	"titlekeeper/internal/transport/telegram"
	"titlekeeper/internal/web"
	logx "titlekeeper/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	svc   *titles.Service
	bot   *telegram.Bot
	web   *web.Server
	cron  *cron.Cron

	tickEvery time.Duration

	runMu     sync.Mutex
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	// .env is optional; secrets may come from the unit environment.
	_ = godotenv.Load()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("component", "config")))

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	tickEvery, err := config.ParseDurationOrDefault("scheduler.tick_interval", cfg.Scheduler.TickInterval, time.Minute)
	if err != nil {
		return err
	}
	a.tickEvery = tickEvery
	reminderLead, err := config.ParseDurationOrDefault("scheduler.reminder_lead", cfg.Scheduler.ReminderLead, 5*time.Minute)
	if err != nil {
		return err
	}
	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	sendTimeout, err := config.ParseDurationField("notify.send_timeout", cfg.Notify.SendTimeout)
	if err != nil {
		return err
	}
	webhookTimeout, err := config.ParseDurationField("notify.webhook_timeout", cfg.Notify.WebhookTimeout)
	if err != nil {
		return err
	}
	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return err
	}

	shift := 3 * time.Hour
	if cfg.Scheduler.ShiftHours > 0 {
		shift = time.Duration(cfg.Scheduler.ShiftHours) * time.Hour
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "./data/titles.db"
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        dbPath,
		BusyTimeout: busyTimeout,
	}, a.log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	var sinks []notifier.Notifier
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notifier.NewWebhook(notifier.WebhookConfig{
			URL:               cfg.Notify.WebhookURL,
			GuardianRoleID:    cfg.Notify.GuardianRoleID,
			RequestsChannelID: cfg.Notify.RequestsChannelID,
			ShiftHours:        int(shift / time.Hour),
			ReminderLeadMins:  int(reminderLead / time.Minute),
			Timeout:           webhookTimeout,
		}))
	}
	if cfg.Notify.PushoverAppToken != "" && cfg.Notify.PushoverUserKey != "" {
		sinks = append(sinks, notifier.NewPushover(notifier.PushoverConfig{
			AppToken: cfg.Notify.PushoverAppToken,
			UserKey:  cfg.Notify.PushoverUserKey,
		}))
	}
	notif := notifier.NewService(notifier.Config{
		RatePerSec:  cfg.Notify.RatePerSec,
		SendTimeout: sendTimeout,
	}, a.log.With(logx.String("component", "notifier")), sinks...)

	a.svc = titles.New(titles.Config{
		ShiftDuration: shift,
		ReminderLead:  reminderLead,
	}, store, notif, a.log.With(logx.String("component", "titles")))

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(telegram.Config{
			Token:        cfg.Telegram.Token,
			AdminUserIDs: cfg.Telegram.AdminUserIDs,
			PollTimeout:  pollTimeout,
		}, a.svc, a.log.With(logx.String("component", "telegram")))
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		a.bot = bot
	} else {
		a.log.Warn("telegram token not set; chat surface disabled")
	}

	if cfg.Web.Enabled {
		iconsDir := ""
		if cfg.Icons.Enabled {
			iconsDir = cfg.Icons.Dir
			if iconsDir == "" {
				iconsDir = "./data/static/icons"
			}
		}
		srv, err := web.New(web.Config{
			Addr:     cfg.Web.Addr,
			IconsDir: iconsDir,
		}, a.svc, a.log.With(logx.String("component", "web")))
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		a.web = srv
	}

	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.runCancel != nil {
		return nil
	}
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel

	cfg := a.cfgMgr.Get()

	if err := a.store.Init(rctx, catalog.Names()); err != nil {
		cancel()
		a.runCancel = nil
		return fmt.Errorf("init storage: %w", err)
	}

	if cfg.Icons.Enabled {
		iconTimeout, _ := config.ParseDurationOrDefault("icons.timeout", cfg.Icons.Timeout, 15*time.Second)
		dir := cfg.Icons.Dir
		if dir == "" {
			dir = "./data/static/icons"
		}
		dl := icons.NewDownloader(icons.Config{Dir: dir, Timeout: iconTimeout},
			a.log.With(logx.String("component", "icons")))
		if err := dl.EnsureAll(rctx); err != nil {
			a.log.Warn("icon cache setup failed", logx.Err(err))
		}
	}

	if err := a.startTick(); err != nil {
		cancel()
		a.runCancel = nil
		return err
	}

	if a.bot != nil {
		if err := a.bot.Start(rctx); err != nil {
			cancel()
			a.runCancel = nil
			return fmt.Errorf("start telegram: %w", err)
		}
	}
	if a.web != nil {
		if err := a.web.Start(rctx); err != nil {
			cancel()
			a.runCancel = nil
			return fmt.Errorf("start web: %w", err)
		}
	}

	// Live reload currently re-applies logging only; everything else
	// needs a restart.
	a.runWG.Add(1)
	go func() {
		defer a.runWG.Done()
		a.watchConfig(rctx)
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

func (a *App) startTick() error {
	c := cron.New(cron.WithLocation(time.UTC))
	spec := fmt.Sprintf("@every %s", a.tickEvery)
	_, err := c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("panic in reconciliation tick",
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.tickEvery)
		defer cancel()
		a.svc.RunTick(ctx, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("register tick: %w", err)
	}
	c.Start()
	a.cron = c
	a.log.Info("reconciliation tick scheduled", logx.Duration("every", a.tickEvery))
	return nil
}

func (a *App) watchConfig(ctx context.Context) {
	updates := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(updates)

	a.runWG.Add(1)
	go func() {
		defer a.runWG.Done()
		_ = a.cfgMgr.Watch(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok || cfg == nil {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging reconfigured", logx.String("level", cfg.Logging.Level))
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
	}

	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	if a.bot != nil {
		_ = a.bot.Stop(ctx)
	}
	if a.web != nil {
		_ = a.web.Stop(ctx)
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
