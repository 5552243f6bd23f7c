package notifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	logx "titlekeeper/pkg/logx"
)

// Config tunes the fanout service.
type Config struct {
	RatePerSec  int           // token bucket for outgoing sends; default 3
	SendTimeout time.Duration // per-sink deadline; default 15s
}

// Service fans one event out to every configured sink with a bounded
// per-send timeout and a shared rate limit. Sink failures are logged; the
// first failure is also returned so the reminder pass can decide whether
// to mark the reminder sent. A slow or failing sink must never stall a
// reconciliation tick beyond the send timeout.
type Service struct {
	sinks   []Notifier
	limiter *rate.Limiter
	timeout time.Duration
	log     logx.Logger
}

func NewService(cfg Config, log logx.Logger, sinks ...Notifier) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
		log:     log,
	}
}

func (s *Service) Notify(ctx context.Context, ev Event) error {
	if len(s.sinks) == 0 {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var firstErr error
	for _, sink := range s.sinks {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := sink.Notify(sctx, ev)
		cancel()
		if err != nil {
			s.log.Warn("notification send failed",
				logx.String("kind", string(ev.Kind)),
				logx.String("title", ev.Title),
				logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.log.Debug("notification sent",
			logx.String("kind", string(ev.Kind)),
			logx.String("title", ev.Title),
			logx.String("ign", ev.IGN))
	}
	return firstErr
}
