// Package storage is the durable record of title holders, reservations and
// the idempotency markers used by the reconciliation loop.
//
// It owns four relations (titles, schedules, sent_reminders,
// activated_slots) plus an append-only audit log. Slot uniqueness is
// enforced here and nowhere else: ReserveSlot is an atomic check-and-insert
// and a losing writer gets a plain false, not an error.
package storage
