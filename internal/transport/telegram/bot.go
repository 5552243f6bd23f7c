// Package telegram is the chat surface: a long-polling bot exposing the
// title roster and shift booking as commands.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"titlekeeper/internal/titles"
	logx "titlekeeper/pkg/logx"
)

type Config struct {
	Token        string
	AdminUserIDs []int64
	PollTimeout  time.Duration
}

type Bot struct {
	cfg Config
	log logx.Logger
	svc *titles.Service

	bot     *tele.Bot
	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	runWG   sync.WaitGroup
}

func New(cfg Config, svc *titles.Service, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:     cfg.Token,
		Poller:    &tele.LongPoller{Timeout: timeout},
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return nil, err
	}
	b := &Bot{cfg: cfg, log: log, svc: svc, bot: tb}
	b.registerHandlers()
	return b, nil
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) Start(ctx context.Context) error {
	b.runMu.Lock()
	if b.running {
		b.runMu.Unlock()
		return nil
	}
	b.running = true
	rctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.runWG.Add(1)
	b.runMu.Unlock()

	go func() {
		defer b.runWG.Done()
		go func() {
			<-rctx.Done()
			b.bot.Stop()
		}()
		b.log.Info("polling started")
		b.bot.Start() // blocks until Stop()
	}()
	return nil
}

func (b *Bot) Stop(ctx context.Context) error {
	b.runMu.Lock()
	cancel := b.cancel
	b.cancel = nil
	wasRunning := b.running
	b.running = false
	b.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	// Never block shutdown on the Telegram long poll.
	done := make(chan struct{})
	go func() {
		b.runWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.log.Warn("stop timed out waiting for poll loop")
		return ctx.Err()
	}
}
