package store

// schema is the full DDL for the embedded analytical database (spec.md
// §4.6). Every table uses TEXT primary keys (UUIDs minted by callers) and
// stores JSON-shaped columns as opaque TEXT blobs.
const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	asset_type             TEXT NOT NULL DEFAULT 'rf_only',
	first_seen             DATETIME NOT NULL,
	last_seen              DATETIME NOT NULL,
	correlation_confidence REAL,

	rf_frequency_hz       REAL,
	rf_signal_strength_db REAL,
	rf_bandwidth_hz       REAL,
	modulation_type       TEXT,
	fingerprint_hash      TEXT,

	net_mac_address TEXT,
	net_ip_address  TEXT,
	hostname        TEXT,
	open_ports      TEXT,
	vendor          TEXT,
	os_guess        TEXT,

	cmdb_ci_class    TEXT,
	rf_protocol      TEXT,
	security_posture TEXT,
	risk_level       TEXT,
	purdue_level     INTEGER,
	device_category  TEXT,
	ot_protocol      TEXT,
	ot_criticality   TEXT,

	discovery_source TEXT,
	cmdb_sys_id      TEXT,
	metadata         TEXT
);
CREATE INDEX IF NOT EXISTS idx_assets_frequency ON assets(rf_frequency_hz);
CREATE INDEX IF NOT EXISTS idx_assets_mac ON assets(net_mac_address);
CREATE INDEX IF NOT EXISTS idx_assets_protocol ON assets(rf_protocol);

CREATE TABLE IF NOT EXISTS signals (
	signal_id         TEXT PRIMARY KEY,
	survey_id         TEXT,
	segment_id        TEXT,
	frequency_hz      REAL NOT NULL,
	power_db          REAL NOT NULL,
	bandwidth_hz      REAL,
	freq_band         TEXT,
	detection_count   INTEGER NOT NULL DEFAULT 1,
	first_seen        DATETIME NOT NULL,
	last_seen         DATETIME NOT NULL,
	state             TEXT NOT NULL DEFAULT 'discovered',
	rf_protocol       TEXT,
	notes             TEXT,
	promoted_asset_id TEXT,
	location_name     TEXT,
	year              INTEGER,
	month             INTEGER,
	metadata          TEXT
);
CREATE INDEX IF NOT EXISTS idx_signals_frequency ON signals(frequency_hz);
CREATE INDEX IF NOT EXISTS idx_signals_partition ON signals(location_name, year, month);
CREATE INDEX IF NOT EXISTS idx_signals_survey ON signals(survey_id, frequency_hz);

CREATE TABLE IF NOT EXISTS network_scans (
	scan_id    TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	subnet     TEXT,
	parameters TEXT
);

CREATE TABLE IF NOT EXISTS scan_sessions (
	scan_id       TEXT PRIMARY KEY,
	device_type   TEXT,
	device_id     TEXT,
	start_time    DATETIME NOT NULL,
	end_time      DATETIME,
	parameters    TEXT
);

CREATE TABLE IF NOT EXISTS spectrum_surveys (
	survey_id           TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	status              TEXT NOT NULL,
	created_at          DATETIME NOT NULL,
	started_at          DATETIME,
	completed_at        DATETIME,
	last_activity_at    DATETIME,
	start_freq_hz       REAL NOT NULL,
	end_freq_hz         REAL NOT NULL,
	total_segments      INTEGER NOT NULL DEFAULT 0,
	completed_segments  INTEGER NOT NULL DEFAULT 0,
	completion_pct      REAL NOT NULL DEFAULT 0,
	total_signals_found INTEGER NOT NULL DEFAULT 0,
	config              TEXT,
	results_summary     TEXT,
	location_name       TEXT,
	antenna_type        TEXT,
	conditions_notes    TEXT,
	baseline_survey_id  TEXT,
	run_number          INTEGER
);
CREATE INDEX IF NOT EXISTS idx_surveys_location ON spectrum_surveys(location_name);

CREATE TABLE IF NOT EXISTS survey_segments (
	segment_id        TEXT PRIMARY KEY,
	survey_id         TEXT NOT NULL,
	name              TEXT,
	start_freq_hz     REAL NOT NULL,
	end_freq_hz       REAL NOT NULL,
	priority          INTEGER NOT NULL,
	step_hz           REAL,
	dwell_time_ms     REAL,
	status            TEXT NOT NULL DEFAULT 'pending',
	scan_id           TEXT,
	started_at        DATETIME,
	completed_at      DATETIME,
	updated_at        DATETIME,
	signals_found     INTEGER NOT NULL DEFAULT 0,
	noise_floor_db    REAL,
	scan_time_seconds REAL,
	error_message     TEXT
);
CREATE INDEX IF NOT EXISTS idx_segments_survey ON survey_segments(survey_id, status, priority, start_freq_hz);
CREATE INDEX IF NOT EXISTS idx_segments_stale ON survey_segments(status, updated_at);
`
