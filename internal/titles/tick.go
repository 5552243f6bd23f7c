package titles

import (
	"context"
	"time"

	"titlekeeper/internal/clock"
	"titlekeeper/internal/notifier"
	"titlekeeper/internal/storage"
	logx "titlekeeper/pkg/logx"
)

// RunTick performs one reconciliation pass at the given instant: expiry,
// reminders, then auto-activation. The whole tick runs as one critical
// section with the request-driven mutations. A storage failure on one title
// skips that title and continues; notifier failures never abort the tick.
//
// The scheduler invokes this on a fixed period; tests invoke it directly
// with a synthetic now.
func (s *Service) RunTick(ctx context.Context, now time.Time) {
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	// One snapshot per tick. The expiry pass updates it in place so the
	// activation pass observes releases made earlier in the same tick.
	statuses, err := s.store.AllStatuses(ctx)
	if err != nil {
		s.log.Error("tick: statuses read failed", logx.Err(err))
		return
	}
	schedules, err := s.store.AllSchedules(ctx)
	if err != nil {
		s.log.Error("tick: schedules read failed", logx.Err(err))
		return
	}

	held := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		held[st.Name] = st.Held()
	}

	s.expiryPass(ctx, now, statuses, held)
	s.reminderPass(ctx, now, schedules)
	s.activationPass(ctx, now, schedules, held)
}

// expiryPass releases every held title whose expiry is at or before now
// (boundary inclusive) and announces the expiry.
func (s *Service) expiryPass(ctx context.Context, now time.Time, statuses []storage.TitleStatus, held map[string]bool) {
	for _, st := range statuses {
		if !st.Held() || st.ExpiryDate == nil || st.ExpiryDate.After(now) {
			continue
		}
		if err := s.store.Release(ctx, st.Name); err != nil {
			s.log.Error("tick: release failed", logx.String("title", st.Name), logx.Err(err))
			continue
		}
		held[st.Name] = false
		s.log.Info("title expired",
			logx.String("title", st.Name),
			logx.String("ign", st.HolderIGN),
			logx.Time("expiry", *st.ExpiryDate))

		s.notifyBestEffort(ctx, notifier.Event{
			Kind:  notifier.KindExpired,
			Title: st.Name,
			IGN:   st.HolderIGN,
			At:    now,
		})
	}
}

// reminderPass sends the one-time T-minus-lead heads-up for every booked
// slot whose fire window contains now. A failed send is not marked, so it
// retries next tick. Once the shift has started the reminder is moot and
// gets marked without sending, so it never fires late.
func (s *Service) reminderPass(ctx context.Context, now time.Time, schedules map[string]map[string]string) {
	for titleName, slots := range schedules {
		for slotKey, ign := range slots {
			start, err := clock.ParseSlotKey(slotKey)
			if err != nil {
				s.log.Warn("tick: bad slot key", logx.String("title", titleName), logx.String("slot", slotKey), logx.Err(err))
				continue
			}
			if now.Before(start.Add(-s.cfg.ReminderLead)) {
				continue
			}

			sent, err := s.store.ReminderSent(ctx, slotKey)
			if err != nil {
				s.log.Error("tick: reminder lookup failed", logx.String("slot", slotKey), logx.Err(err))
				continue
			}
			if sent {
				continue
			}

			if !now.Before(start) {
				// Shift already started; suppress the stale reminder.
				if err := s.store.MarkReminderSent(ctx, slotKey); err != nil {
					s.log.Error("tick: reminder mark failed", logx.String("slot", slotKey), logx.Err(err))
				}
				continue
			}

			if s.notif != nil {
				if err := s.notif.Notify(ctx, notifier.Event{
					Kind:  notifier.KindReminder,
					Title: titleName,
					IGN:   ign,
					At:    now,
				}); err != nil {
					// Not marked: retried next tick until it lands or the
					// shift starts.
					s.log.Warn("tick: reminder send failed",
						logx.String("title", titleName),
						logx.String("slot", slotKey),
						logx.Err(err))
					continue
				}
			}
			if err := s.store.MarkReminderSent(ctx, slotKey); err != nil {
				s.log.Error("tick: reminder mark failed", logx.String("slot", slotKey), logx.Err(err))
				continue
			}
			s.log.Info("reminder sent", logx.String("title", titleName), logx.String("slot", slotKey), logx.String("ign", ign))
		}
	}
}

// activationPass promotes reservations whose shift window has begun into
// live assignments. A title still held by a previous occupant is skipped
// this tick and retried on the next; activation is never forced.
func (s *Service) activationPass(ctx context.Context, now time.Time, schedules map[string]map[string]string, held map[string]bool) {
	for titleName, slots := range schedules {
		for slotKey, ign := range slots {
			start, err := clock.ParseSlotKey(slotKey)
			if err != nil {
				continue // already logged by the reminder pass
			}
			if !clock.IsWithinShift(start, now, s.cfg.ShiftDuration) {
				continue
			}

			activated, err := s.store.SlotActivated(ctx, titleName, slotKey)
			if err != nil {
				s.log.Error("tick: activation lookup failed", logx.String("slot", slotKey), logx.Err(err))
				continue
			}
			if activated {
				continue
			}

			if held[titleName] {
				s.log.Debug("activation deferred; title still held",
					logx.String("title", titleName),
					logx.String("slot", slotKey))
				continue
			}

			expiry := start.Add(s.cfg.ShiftDuration)
			if err := s.store.Assign(ctx, titleName, ign, "-", 0, start, expiry); err != nil {
				s.log.Error("tick: assign failed", logx.String("title", titleName), logx.Err(err))
				continue
			}
			if err := s.store.MarkSlotActivated(ctx, titleName, slotKey); err != nil {
				s.log.Error("tick: activation mark failed", logx.String("title", titleName), logx.Err(err))
			}
			held[titleName] = true
			s.log.Info("scheduled handoff",
				logx.String("title", titleName),
				logx.String("slot", slotKey),
				logx.String("ign", ign))

			s.notifyBestEffort(ctx, notifier.Event{
				Kind:  notifier.KindHandoff,
				Title: titleName,
				IGN:   ign,
				At:    now,
			})
		}
	}
}
