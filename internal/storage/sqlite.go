package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	logx "titlekeeper/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	mu    sync.RWMutex
	order []string // catalog display order, fixed by Init
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Init(ctx context.Context, titleNames []string) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Seed a vacant row per title; existing rows are never overwritten.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, name := range titleNames {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO titles(name) VALUES(?)`, name); err != nil {
			return fmt.Errorf("seed title %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	s.order = append([]string(nil), titleNames...)
	s.mu.Unlock()

	s.log.Info("store initialized", logx.Int("titles", len(titleNames)))
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AllStatuses(ctx context.Context) ([]TitleStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, holder_ign, holder_coords, holder_discord_id, claim_date, expiry_date FROM titles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]TitleStatus{}
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		byName[st.Name] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Catalog-declared order, not insertion order.
	s.mu.RLock()
	order := s.order
	s.mu.RUnlock()
	out := make([]TitleStatus, 0, len(order))
	for _, name := range order {
		if st, ok := byName[name]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *sqliteStore) Status(ctx context.Context, titleName string) (*TitleStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, holder_ign, holder_coords, holder_discord_id, claim_date, expiry_date FROM titles WHERE name = ?`,
		titleName)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(r rowScanner) (TitleStatus, error) {
	var (
		st        TitleStatus
		ign       sql.NullString
		coords    sql.NullString
		discordID sql.NullInt64
		claim     sql.NullString
		expiry    sql.NullString
	)
	if err := r.Scan(&st.Name, &ign, &coords, &discordID, &claim, &expiry); err != nil {
		return TitleStatus{}, err
	}
	st.HolderIGN = ign.String
	st.HolderCoords = coords.String
	st.HolderDiscordID = discordID.Int64
	var err error
	if st.ClaimDate, err = parseNullTime(claim); err != nil {
		return TitleStatus{}, fmt.Errorf("title %q claim_date: %w", st.Name, err)
	}
	if st.ExpiryDate, err = parseNullTime(expiry); err != nil {
		return TitleStatus{}, fmt.Errorf("title %q expiry_date: %w", st.Name, err)
	}
	return st, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (s *sqliteStore) Assign(ctx context.Context, titleName, holderIGN, holderCoords string, holderDiscordID int64, claim, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE titles SET holder_ign=?, holder_coords=?, holder_discord_id=?, claim_date=?, expiry_date=? WHERE name=?`,
		holderIGN, holderCoords, holderDiscordID,
		claim.UTC().Format(timeLayout), expiry.UTC().Format(timeLayout), titleName)
	return err
}

func (s *sqliteStore) Release(ctx context.Context, titleName string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE titles SET holder_ign=NULL, holder_coords=NULL, holder_discord_id=NULL, claim_date=NULL, expiry_date=NULL WHERE name=?`,
		titleName)
	return err
}

func (s *sqliteStore) ReserveSlot(ctx context.Context, titleName, slotKey, reserverIGN string) (bool, error) {
	// The composite primary key makes this the one atomic check-and-insert
	// guarding against double booking. A losing writer affects zero rows.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schedules(title_name, slot_key, reserver_ign) VALUES(?,?,?)`,
		titleName, slotKey, reserverIGN)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) Reservation(ctx context.Context, titleName, slotKey string) (string, error) {
	var ign string
	err := s.db.QueryRowContext(ctx,
		`SELECT reserver_ign FROM schedules WHERE title_name=? AND slot_key=?`,
		titleName, slotKey).Scan(&ign)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ign, nil
}

func (s *sqliteStore) CancelReservation(ctx context.Context, titleName, slotKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schedules WHERE title_name=? AND slot_key=?`, titleName, slotKey); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activated_slots WHERE title_name=? AND slot_key=?`, titleName, slotKey); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) IGNBookedForSlot(ctx context.Context, ign, slotKey string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title_name FROM schedules WHERE reserver_ign=? AND slot_key=?`,
		ign, slotKey).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return title, nil
}

func (s *sqliteStore) AllSchedules(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title_name, slot_key, reserver_ign FROM schedules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]map[string]string{}
	for rows.Next() {
		var title, slot, ign string
		if err := rows.Scan(&title, &slot, &ign); err != nil {
			return nil, err
		}
		m := out[title]
		if m == nil {
			m = map[string]string{}
			out[title] = m
		}
		m[slot] = ign
	}
	return out, rows.Err()
}

func (s *sqliteStore) MarkReminderSent(ctx context.Context, slotKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_reminders(slot_key) VALUES(?)`, slotKey)
	return err
}

func (s *sqliteStore) ReminderSent(ctx context.Context, slotKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sent_reminders WHERE slot_key=?`, slotKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteStore) MarkSlotActivated(ctx context.Context, titleName, slotKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO activated_slots(title_name, slot_key) VALUES(?,?)`, titleName, slotKey)
	return err
}

func (s *sqliteStore) SlotActivated(ctx context.Context, titleName, slotKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM activated_slots WHERE title_name=? AND slot_key=?`, titleName, slotKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(id, at, title, ign, coords, actor, source) VALUES(?,?,?,?,?,?,?)`,
		e.ID, e.At.UTC().Format(time.RFC3339Nano), e.Title, e.IGN,
		nullStr(e.Coords), nullStr(e.Actor), nullStr(e.Source))
	return err
}

func (s *sqliteStore) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, title, ign, coords, actor, source FROM audit ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                     AuditEntry
			at                    string
			coords, actor, source sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.Title, &e.IGN, &coords, &actor, &source); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t.UTC()
		}
		e.Coords = coords.String
		e.Actor = actor.String
		e.Source = source.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
