// internal/infra/database/postgres_reminder_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const dateLayout = "2006-01-02"

// domainTable maps one entity table onto reminder.Entity. Every select lists
// the same aliased columns so a single scanner serves all domains.
type domainTable struct {
	table    string
	extraKey string
	selectQ  string
}

var domainTables = map[reminder.Domain]domainTable{
	reminder.DomainAnniversary: {
		table:    "anniversaries",
		extraKey: "partner_name",
		selectQ: `SELECT id::text, title, anniversary_date, repeat_policy, reminder_enabled, reminder_days,
                         email, is_active, FALSE, partner_name
                  FROM anniversaries
                  WHERE reminder_enabled AND is_active AND email <> ''
                  ORDER BY id`,
	},
	reminder.DomainPlan: {
		table:    "trip_plans",
		extraKey: "destination",
		selectQ: `SELECT id::text, name, start_date, repeat_policy, reminder_enabled, reminder_days,
                         email, is_active, FALSE, destination
                  FROM trip_plans
                  WHERE reminder_enabled AND is_active AND email <> ''
                  ORDER BY id`,
	},
	reminder.DomainTask: {
		table:    "tasks",
		extraKey: "assignee",
		selectQ: `SELECT id::text, title, due_date, 'DUE', reminder_enabled, reminder_days,
                         contact_address, is_active, is_completed, assignee
                  FROM tasks
                  WHERE reminder_enabled AND is_active AND NOT is_completed AND contact_address <> ''
                  ORDER BY id`,
	},
}

// PostgresReminderStore implements reminder.Store over the entity tables.
type PostgresReminderStore struct {
	db         *sql.DB
	strategies map[reminder.Domain]reminder.LedgerStrategy
}

func NewPostgresReminderStore(db *sql.DB, strategies map[reminder.Domain]reminder.LedgerStrategy) *PostgresReminderStore {
	if strategies == nil {
		strategies = map[reminder.Domain]reminder.LedgerStrategy{}
	}
	return &PostgresReminderStore{db: db, strategies: strategies}
}

// OpenSession pins one pooled connection for the duration of a scan.
func (s *PostgresReminderStore) OpenSession(ctx context.Context, domain reminder.Domain) (reminder.Session, error) {
	dt, ok := domainTables[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", reminder.ErrUnknownDomain, domain)
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("error acquiring connection for %s scan: %w", domain, err)
	}
	strategy := s.strategies[domain]
	if strategy == "" {
		strategy = reminder.LedgerTable
	}
	return &pgSession{conn: conn, domain: domain, dt: dt, strategy: strategy}, nil
}

func (s *PostgresReminderStore) SetReminderEnabled(ctx context.Context, domain reminder.Domain, entityID string, enabled bool) error {
	dt, ok := domainTables[domain]
	if !ok {
		return fmt.Errorf("%w: %q", reminder.ErrUnknownDomain, domain)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(entityID), 10, 64)
	if err != nil {
		return fmt.Errorf("%s %s: %w", domain, entityID, reminder.ErrEntityNotFound)
	}
	// A false -> true transition wipes the embedded markers.
	query := fmt.Sprintf(`UPDATE %s SET
                  reminder_sent_thresholds = CASE WHEN NOT reminder_enabled AND $2::boolean THEN '{}' ELSE reminder_sent_thresholds END,
                  reminder_marker_occurrence = CASE WHEN NOT reminder_enabled AND $2::boolean THEN NULL ELSE reminder_marker_occurrence END,
                  reminder_enabled = $2::boolean,
                  updated_at = NOW()
              WHERE id = $1`, dt.table)
	res, err := s.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("error updating reminder flag for %s %s: %w", domain, entityID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", domain, entityID, reminder.ErrEntityNotFound)
	}
	return nil
}

type pgSession struct {
	conn     *sql.Conn
	domain   reminder.Domain
	dt       domainTable
	strategy reminder.LedgerStrategy
}

func (ss *pgSession) ListReminderCandidates(ctx context.Context) ([]*reminder.Entity, error) {
	rows, err := ss.conn.QueryContext(ctx, ss.dt.selectQ)
	if err != nil {
		return nil, fmt.Errorf("error listing %s reminder candidates: %w", ss.domain, err)
	}
	defer rows.Close()

	var entities []*reminder.Entity
	for rows.Next() {
		var (
			e      reminder.Entity
			anchor time.Time
			policy string
			days   string
			extraV string
		)
		if err := rows.Scan(&e.ID, &e.Title, &anchor, &policy, &e.ReminderEnabled, &days,
			&e.ChannelAddress, &e.Active, &e.Completed, &extraV); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", ss.domain, err)
		}
		e.Domain = ss.domain
		e.AnchorDate = reminder.Date(anchor.Year(), anchor.Month(), anchor.Day())
		e.Policy = reminder.ParseRepeatPolicy(policy)
		e.Thresholds = reminder.ParseThresholds(days)
		e.Extra = map[string]string{ss.dt.extraKey: extraV}
		entities = append(entities, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", ss.domain, err)
	}
	return entities, nil
}

func (ss *pgSession) Ledger() reminder.Ledger {
	if ss.strategy == reminder.LedgerMarker {
		return &markerLedger{conn: ss.conn, table: ss.dt.table}
	}
	return &tableLedger{conn: ss.conn}
}

func (ss *pgSession) Close() error {
	return ss.conn.Close()
}

// tableLedger appends to reminder_deliveries. The partial unique index keeps
// one successful row per key.
type tableLedger struct {
	conn *sql.Conn
}

func (l *tableLedger) AlreadySent(ctx context.Context, key reminder.DeliveryKey) (bool, error) {
	query := `SELECT EXISTS (
                  SELECT 1 FROM reminder_deliveries
                  WHERE domain = $1 AND entity_id = $2 AND occurrence_date = $3::date AND threshold = $4 AND success)`
	var sent bool
	err := l.conn.QueryRowContext(ctx, query, string(key.Domain), key.EntityID, key.Occurrence.Format(dateLayout), key.Threshold).Scan(&sent)
	if err != nil {
		return false, fmt.Errorf("error checking delivery %s: %w", key, err)
	}
	return sent, nil
}

func (l *tableLedger) RecordAttempt(ctx context.Context, rec reminder.DeliveryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	query := `INSERT INTO reminder_deliveries (id, domain, entity_id, occurrence_date, threshold, sent_at, success, superseded, error_detail)
              VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
              ON CONFLICT (domain, entity_id, occurrence_date, threshold) WHERE success DO NOTHING`
	_, err := l.conn.ExecContext(ctx, query, rec.ID, string(rec.Key.Domain), rec.Key.EntityID,
		rec.Key.Occurrence.Format(dateLayout), rec.Key.Threshold, rec.SentAt, rec.Success, rec.Superseded, rec.ErrorDetail)
	if err != nil {
		return fmt.Errorf("error recording delivery %s: %w", rec.Key, err)
	}
	return nil
}

// markerLedger keeps fired thresholds on the entity row itself.
type markerLedger struct {
	conn  *sql.Conn
	table string
}

func (l *markerLedger) load(ctx context.Context, entityID string) (reminder.Markers, error) {
	query := fmt.Sprintf(`SELECT reminder_marker_occurrence, reminder_sent_thresholds FROM %s WHERE id = $1`, l.table)
	var (
		occ sql.NullTime
		ts  pq.Int64Array
	)
	err := l.conn.QueryRowContext(ctx, query, entityID).Scan(&occ, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return reminder.Markers{}, reminder.ErrEntityNotFound
		}
		return reminder.Markers{}, fmt.Errorf("error loading markers for %s %s: %w", l.table, entityID, err)
	}
	return decodeMarkers(occ, ts), nil
}

func (l *markerLedger) AlreadySent(ctx context.Context, key reminder.DeliveryKey) (bool, error) {
	m, err := l.load(ctx, key.EntityID)
	if err != nil {
		return false, err
	}
	return m.Has(key.Occurrence, key.Threshold), nil
}

func (l *markerLedger) RecordAttempt(ctx context.Context, rec reminder.DeliveryRecord) error {
	if !rec.Success {
		return nil
	}
	m, err := l.load(ctx, rec.Key.EntityID)
	if err != nil {
		return err
	}
	occ, ts := encodeMarkers(m.With(rec.Key.Occurrence, rec.Key.Threshold))
	query := fmt.Sprintf(`UPDATE %s SET reminder_marker_occurrence = $2::date, reminder_sent_thresholds = $3 WHERE id = $1`, l.table)
	if _, err := l.conn.ExecContext(ctx, query, rec.Key.EntityID, occ, ts); err != nil {
		return fmt.Errorf("error saving markers for %s: %w", rec.Key, err)
	}
	return nil
}

func decodeMarkers(occ sql.NullTime, ts pq.Int64Array) reminder.Markers {
	if !occ.Valid {
		return reminder.Markers{}
	}
	m := reminder.Markers{Occurrence: reminder.Date(occ.Time.Year(), occ.Time.Month(), occ.Time.Day())}
	for _, t := range ts {
		m.Thresholds = append(m.Thresholds, int(t))
	}
	return m
}

func encodeMarkers(m reminder.Markers) (sql.NullString, pq.Int64Array) {
	if m.Occurrence.IsZero() {
		return sql.NullString{}, pq.Int64Array{}
	}
	ts := make(pq.Int64Array, 0, len(m.Thresholds))
	for _, t := range m.Thresholds {
		ts = append(ts, int64(t))
	}
	return sql.NullString{String: m.Occurrence.Format(dateLayout), Valid: true}, ts
}
