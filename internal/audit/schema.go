package audit

const createTransitionsTable = `
CREATE TABLE IF NOT EXISTS laundry_transitions (
	event_id          String,
	at                DateTime64(3),
	device_id         String,
	label             String,
	device_type       LowCardinality(String),
	from_status       LowCardinality(String),
	to_status         LowCardinality(String),
	reason            String,
	online            UInt8,
	time_left_ms      Int64,
	total_duration_ms Int64,
	state_code        Int32,
	activation_tag    String,
	previous_since    DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (device_id, at)
`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS laundry_runs (
	event_id       String,
	device_id      String,
	label          String,
	device_type    LowCardinality(String),
	started_at     DateTime64(3),
	ended_at       DateTime64(3),
	duration_ms    Int64,
	end_status     LowCardinality(String),
	activation_tag String
) ENGINE = MergeTree()
ORDER BY (device_id, started_at)
`

const insertTransition = `
INSERT INTO laundry_transitions (event_id, at, device_id, label, device_type, from_status, to_status,
	reason, online, time_left_ms, total_duration_ms, state_code, activation_tag, previous_since)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertRun = `
INSERT INTO laundry_runs (event_id, device_id, label, device_type, started_at, ended_at,
	duration_ms, end_status, activation_tag)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// allTables returns the DDL for every audit table.
func allTables() []string {
	return []string{createTransitionsTable, createRunsTable}
}
