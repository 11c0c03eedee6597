// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/container-status-poller/internal/containerno"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// Store implements the watch, status, notification ledger, and run stores.
type Store struct {
	pool dbPool
}

var (
	_ tracker.WatchStore  = (*Store)(nil)
	_ tracker.StatusStore = (*Store)(nil)
	_ tracker.RunStore    = (*Store)(nil)
)

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables the poller needs if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const selectWatches = `
SELECT id, user_id, COALESCE(user_email, ''), vessel_name, COALESCE(shipment_reference, ''),
	container_refs, COALESCE(provider, ''), notifications_enabled
FROM watches
WHERE container_refs IS NOT NULL AND btrim(container_refs) <> ''
ORDER BY id`

// LoadActiveWatches returns watches carrying at least one valid container number.
func (s *Store) LoadActiveWatches(ctx context.Context) ([]tracker.Watch, error) {
	rows, err := s.pool.Query(ctx, selectWatches)
	if err != nil {
		return nil, &tracker.StoreError{Op: "load watches", Err: err}
	}
	defer rows.Close()

	var out []tracker.Watch
	for rows.Next() {
		var (
			w        tracker.Watch
			provider string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.UserEmail, &w.VesselName, &w.ShipmentRef,
			&w.ContainerRefs, &provider, &w.NotificationsEnabled); err != nil {
			return nil, &tracker.StoreError{Op: "scan watch", Err: err}
		}
		w.VesselName = tracker.NormalizeVesselName(w.VesselName)
		if w.Provider, err = tracker.ParseProviderName(provider); err != nil {
			w.Provider = tracker.ProviderAuto
		}
		if len(containerno.Parse(w.ContainerRefs)) == 0 {
			continue
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &tracker.StoreError{Op: "load watches", Err: err}
	}
	return out, nil
}

const selectLatest = `
SELECT watch_id, container_no, provider, status_raw, normalized_status, terminal,
	shipping_line, discharge_order_status, discharge_order_ts, delivered_out, scraped_at,
	status_hash, updated_at
FROM container_latest_status
WHERE watch_id = ANY($1)`

// LoadLatestStatuses returns baselines for all given watches in one query.
func (s *Store) LoadLatestStatuses(ctx context.Context, watchIDs []string) (map[tracker.LatestKey]tracker.LatestStatus, error) {
	out := make(map[tracker.LatestKey]tracker.LatestStatus)
	if len(watchIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, selectLatest, watchIDs)
	if err != nil {
		return nil, &tracker.StoreError{Op: "load latest statuses", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l                    tracker.LatestStatus
			provider, normalized string
		)
		r := &l.Result
		if err := rows.Scan(&l.WatchID, &l.ContainerNo, &provider, &r.StatusRaw, &normalized, &r.Terminal,
			&r.ShippingLine, &r.DischargeOrderStatus, &r.DischargeOrderAt, &r.DeliveredOut, &r.ScrapedAt,
			&l.StatusHash, &l.UpdatedAt); err != nil {
			return nil, &tracker.StoreError{Op: "scan latest status", Err: err}
		}
		r.ContainerNo = l.ContainerNo
		r.Provider = tracker.ProviderName(provider)
		st, err := tracker.ParseNormalizedStatus(normalized)
		if err != nil {
			// An unreadable baseline is treated as no baseline.
			continue
		}
		r.Normalized = st
		out[l.Key()] = l
	}
	if err := rows.Err(); err != nil {
		return nil, &tracker.StoreError{Op: "load latest statuses", Err: err}
	}
	return out, nil
}

const upsertLatest = `
INSERT INTO container_latest_status (
	watch_id, container_no, provider, status_raw, normalized_status, terminal,
	shipping_line, discharge_order_status, discharge_order_ts, delivered_out, scraped_at,
	status_hash, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (watch_id, container_no) DO UPDATE SET
	provider = EXCLUDED.provider,
	status_raw = EXCLUDED.status_raw,
	normalized_status = EXCLUDED.normalized_status,
	terminal = EXCLUDED.terminal,
	shipping_line = EXCLUDED.shipping_line,
	discharge_order_status = EXCLUDED.discharge_order_status,
	discharge_order_ts = EXCLUDED.discharge_order_ts,
	delivered_out = EXCLUDED.delivered_out,
	scraped_at = EXCLUDED.scraped_at,
	status_hash = EXCLUDED.status_hash,
	updated_at = EXCLUDED.updated_at`

// UpsertLatest writes the comparison baseline for one watch and container.
func (s *Store) UpsertLatest(ctx context.Context, l tracker.LatestStatus) error {
	r := l.Result
	if _, err := s.pool.Exec(ctx, upsertLatest,
		l.WatchID, l.ContainerNo, string(r.Provider), r.StatusRaw, string(r.Normalized), r.Terminal,
		r.ShippingLine, r.DischargeOrderStatus, r.DischargeOrderAt, r.DeliveredOut, r.ScrapedAt,
		l.StatusHash, l.UpdatedAt,
	); err != nil {
		return &tracker.StoreError{Op: "upsert latest status", Err: err}
	}
	return nil
}

const insertEvent = `
INSERT INTO container_status_events (
	watch_id, container_no, previous_status, new_status, status_hash, occurred_at
) VALUES ($1,$2,$3,$4,$5,$6)`

// AppendEvent inserts an immutable transition record.
func (s *Store) AppendEvent(ctx context.Context, e tracker.StatusEvent) error {
	if _, err := s.pool.Exec(ctx, insertEvent,
		e.WatchID, e.ContainerNo, nullableStatus(e.Previous), string(e.Current), e.StatusHash, e.OccurredAt,
	); err != nil {
		return &tracker.StoreError{Op: "append status event", Err: err}
	}
	return nil
}

const insertNotification = `
INSERT INTO container_notifications (watch_id, container_no, event_type, status_hash, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (watch_id, container_no, event_type, status_hash) DO NOTHING`

// TryInsertNotificationRecord performs a conditional insert. A conflicting row
// yields accepted=false without error.
func (s *Store) TryInsertNotificationRecord(ctx context.Context, rec tracker.NotificationRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, insertNotification,
		rec.WatchID, rec.ContainerNo, rec.EventType, rec.StatusHash, rec.CreatedAt)
	if err != nil {
		return false, &tracker.StoreError{Op: "insert notification record", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

const insertRun = `
INSERT INTO poll_runs (
	id, started_at, finished_at, loaded, skipped, ok, failed, changed, unchanged, notified, error, transcript
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

// SaveRunSummary stores a finalized run summary.
func (s *Store) SaveRunSummary(ctx context.Context, sum tracker.RunSummary) error {
	transcript, err := json.Marshal(nonNil(sum.Transcript))
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertRun,
		sum.ID, sum.StartedAt, sum.FinishedAt, sum.Loaded, sum.Skipped, sum.OK, sum.Failed,
		sum.Changed, sum.Unchanged, sum.Notified, sum.Error, transcript,
	); err != nil {
		return &tracker.StoreError{Op: "insert run summary", Err: err}
	}
	return nil
}

func nullableStatus(s *tracker.NormalizedStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
