package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS watches (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_email TEXT,
	vessel_name TEXT NOT NULL DEFAULT '',
	shipment_reference TEXT,
	container_refs TEXT,
	provider TEXT NOT NULL DEFAULT 'AUTO',
	notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE
)`,
	`CREATE TABLE IF NOT EXISTS container_latest_status (
	watch_id TEXT NOT NULL REFERENCES watches(id) ON DELETE CASCADE,
	container_no TEXT NOT NULL,
	provider TEXT NOT NULL,
	status_raw TEXT NOT NULL DEFAULT '',
	normalized_status TEXT NOT NULL,
	terminal TEXT NOT NULL DEFAULT '',
	shipping_line TEXT NOT NULL DEFAULT '',
	discharge_order_status TEXT NOT NULL DEFAULT '',
	discharge_order_ts TIMESTAMPTZ,
	delivered_out BOOLEAN NOT NULL DEFAULT FALSE,
	scraped_at TIMESTAMPTZ NOT NULL,
	status_hash TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (watch_id, container_no)
)`,
	`CREATE TABLE IF NOT EXISTS container_status_events (
	id BIGSERIAL PRIMARY KEY,
	watch_id TEXT NOT NULL,
	container_no TEXT NOT NULL,
	previous_status TEXT,
	new_status TEXT NOT NULL,
	status_hash TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS container_status_events_watch_idx
	ON container_status_events (watch_id, container_no, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS container_notifications (
	watch_id TEXT NOT NULL,
	container_no TEXT NOT NULL,
	event_type TEXT NOT NULL,
	status_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (watch_id, container_no, event_type, status_hash)
)`,
	`CREATE TABLE IF NOT EXISTS poll_runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	loaded INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	ok INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	changed INTEGER NOT NULL,
	unchanged INTEGER NOT NULL,
	notified INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	transcript JSONB NOT NULL
)`,
}
