// Package medallion implements the three-stage Bronze → Silver → Gold
// promotion described by spec.md §4.7: a deterministic, idempotent set of
// transformations over the embedded store that progressively filters raw
// signal detections down to classified, business-ready RF assets.
package medallion

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kx9v/rfscout/internal/classify"
	"github.com/kx9v/rfscout/internal/logging"
)

// Result reports the outcome of one transformation stage, matching
// TransformResult in the original.
type Result struct {
	Layer           string
	Table           string
	RowsSource      int
	RowsCreated     int
	DurationSeconds float64
	Success         bool
	Error           string
}

// freqBandToProtocol maps the priority-band catalogue's names (see
// internal/survey.Catalogue) to the rf_protocol classification silver rows
// carry. Bands with no dedicated protocol in the classification table
// (ISM, amateur, air/marine VHF) stay unknown, matching the auto-promoted
// rf_only assets the survey engine creates for them.
var freqBandToProtocol = map[string]classify.RFProtocol{
	"fm_broadcast": classify.ProtocolFMBroadcast,
	"am_broadcast": classify.ProtocolAMBroadcast,
	"ads_b":        classify.ProtocolADSB,
}

func protocolForBand(band string) classify.RFProtocol {
	if p, ok := freqBandToProtocol[band]; ok {
		return p
	}
	return classify.ProtocolUnknown
}

// Transformer runs medallion stages against a store's database.
type Transformer struct {
	DB  *sql.DB
	Log logging.Logger
}

// New builds a Transformer over db. A nil log uses logging.Default().
func New(db *sql.DB, log logging.Logger) *Transformer {
	if log == nil {
		log = logging.Default()
	}
	return &Transformer{DB: db, Log: log}
}

// Options configures the thresholds for a single BronzeToSilver /
// SilverToGold invocation.
type Options struct {
	MinSilverPowerDB  float64 // default 0
	MinDetections     int     // default 1
	MinGoldPowerDB    float64 // default 10
	KnownBandsOnly    bool    // exclude rf_protocol = unknown from gold
	DryRun            bool
}

// DefaultOptions returns the teacher's customary thresholds.
func DefaultOptions() Options {
	return Options{MinDetections: 1, MinGoldPowerDB: 10, KnownBandsOnly: true}
}

type silverRow struct {
	SignalID       string
	FrequencyHz    float64
	PowerDB        float64
	BandwidthHz    sql.NullFloat64
	FreqBand       string
	DetectionCount int
	FirstSeen      time.Time
	LastSeen       time.Time
	LocationName   sql.NullString
	RFProtocol     classify.RFProtocol
}

// BronzeToSilver filters signals into verified_signals, dropping and
// recreating the table (idempotent). DryRun reports the source count
// without writing.
func (t *Transformer) BronzeToSilver(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	rows, err := t.selectSilverSource(ctx, opts)
	if err != nil {
		return Result{}, fmt.Errorf("medallion: bronze to silver: %w", err)
	}

	res := Result{Layer: "silver", Table: "verified_signals", RowsSource: len(rows), Success: true}
	if opts.DryRun {
		res.DurationSeconds = time.Since(start).Seconds()
		res.Error = "dry run - no changes made"
		return res, nil
	}

	if err := t.recreateVerifiedSignals(ctx, rows); err != nil {
		return Result{}, fmt.Errorf("medallion: recreate verified_signals: %w", err)
	}

	res.RowsCreated = len(rows)
	res.DurationSeconds = time.Since(start).Seconds()
	t.Log.Info("created verified_signals",
		logging.Field{Key: "rows", Value: res.RowsCreated},
		logging.Field{Key: "source", Value: res.RowsSource},
	)
	return res, nil
}

func (t *Transformer) selectSilverSource(ctx context.Context, opts Options) ([]silverRow, error) {
	rows, err := t.DB.QueryContext(ctx, `
		SELECT signal_id, frequency_hz, power_db, bandwidth_hz, freq_band,
		       detection_count, first_seen, last_seen, location_name
		FROM signals
		WHERE power_db >= ?
		  AND detection_count >= ?
		  AND freq_band IS NOT NULL
		  AND freq_band NOT IN ('unknown', 'gap', 'gap_fill')
	`, opts.MinSilverPowerDB, opts.MinDetections)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []silverRow
	for rows.Next() {
		var r silverRow
		if err := rows.Scan(&r.SignalID, &r.FrequencyHz, &r.PowerDB, &r.BandwidthHz,
			&r.FreqBand, &r.DetectionCount, &r.FirstSeen, &r.LastSeen, &r.LocationName); err != nil {
			return nil, err
		}
		r.RFProtocol = protocolForBand(r.FreqBand)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *Transformer) recreateVerifiedSignals(ctx context.Context, rows []silverRow) error {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS verified_signals`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE verified_signals (
			signal_id       TEXT PRIMARY KEY,
			frequency_hz    REAL NOT NULL,
			power_db        REAL NOT NULL,
			bandwidth_hz    REAL,
			freq_band       TEXT NOT NULL,
			detection_count INTEGER NOT NULL,
			first_seen      DATETIME NOT NULL,
			last_seen       DATETIME NOT NULL,
			location_name   TEXT,
			rf_protocol     TEXT NOT NULL
		)
	`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verified_signals
			(signal_id, frequency_hz, power_db, bandwidth_hz, freq_band,
			 detection_count, first_seen, last_seen, location_name, rf_protocol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.SignalID, r.FrequencyHz, r.PowerDB, r.BandwidthHz,
			r.FreqBand, r.DetectionCount, r.FirstSeen, r.LastSeen, r.LocationName, string(r.RFProtocol)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CreateBandInventory aggregates per-band statistics from signals into
// band_inventory, dropping and recreating the table.
func (t *Transformer) CreateBandInventory(ctx context.Context) (Result, error) {
	start := time.Now()

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS band_inventory`); err != nil {
		return Result{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE band_inventory AS
		SELECT
			freq_band,
			COUNT(*) AS signal_count,
			MIN(frequency_hz) AS min_freq_hz,
			MAX(frequency_hz) AS max_freq_hz,
			AVG(power_db) AS avg_power_db,
			MAX(power_db) AS max_power_db,
			MIN(first_seen) AS earliest_detection,
			MAX(last_seen) AS latest_detection,
			SUM(detection_count) AS total_detections
		FROM signals
		WHERE freq_band IS NOT NULL
		GROUP BY freq_band
		ORDER BY signal_count DESC
	`); err != nil {
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}

	var count int
	if err := t.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM band_inventory`).Scan(&count); err != nil {
		return Result{}, err
	}

	return Result{
		Layer: "silver", Table: "band_inventory",
		RowsSource: count, RowsCreated: count, Success: true,
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}

type goldRow struct {
	silverRow
	Name            string
	CMDBCIClass     classify.CMDBCIClass
	PurdueLevel     classify.PurdueLevel
	HasPurdueLevel  bool
	SecurityPosture classify.SecurityPosture
	RiskLevel       classify.RiskLevel
}

// SilverToGold derives classified gold rf_assets rows from verified_signals,
// dropping and recreating the table.
func (t *Transformer) SilverToGold(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()

	rows, err := t.selectGoldSource(ctx, opts)
	if err != nil {
		return Result{}, fmt.Errorf("medallion: silver to gold: %w", err)
	}

	res := Result{Layer: "gold", Table: "rf_assets", RowsSource: len(rows), Success: true}
	if opts.DryRun {
		res.DurationSeconds = time.Since(start).Seconds()
		res.Error = "dry run - no changes made"
		return res, nil
	}

	if err := t.recreateRFAssets(ctx, rows); err != nil {
		return Result{}, fmt.Errorf("medallion: recreate rf_assets: %w", err)
	}

	res.RowsCreated = len(rows)
	res.DurationSeconds = time.Since(start).Seconds()
	t.Log.Info("created rf_assets",
		logging.Field{Key: "rows", Value: res.RowsCreated},
		logging.Field{Key: "source", Value: res.RowsSource},
	)
	return res, nil
}

func (t *Transformer) selectGoldSource(ctx context.Context, opts Options) ([]goldRow, error) {
	var exists int
	if err := t.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'verified_signals'
	`).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		if !opts.DryRun {
			return nil, fmt.Errorf("silver layer not found, run BronzeToSilver first")
		}
		// A dry run never writes verified_signals, so gold candidates come
		// from the rows BronzeToSilver would have written.
		silver, err := t.selectSilverSource(ctx, opts)
		if err != nil {
			return nil, err
		}
		var out []goldRow
		for _, r := range silver {
			if r.PowerDB >= opts.MinGoldPowerDB && (!opts.KnownBandsOnly || r.RFProtocol != classify.ProtocolUnknown) {
				out = append(out, classifyGoldRow(r))
			}
		}
		return out, nil
	}

	query := `SELECT signal_id, frequency_hz, power_db, bandwidth_hz, freq_band,
		       detection_count, first_seen, last_seen, location_name, rf_protocol
		FROM verified_signals WHERE power_db >= ?`
	args := []any{opts.MinGoldPowerDB}
	if opts.KnownBandsOnly {
		query += ` AND rf_protocol != ?`
		args = append(args, string(classify.ProtocolUnknown))
	}

	rows, err := t.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []goldRow
	for rows.Next() {
		var r silverRow
		var protocol string
		if err := rows.Scan(&r.SignalID, &r.FrequencyHz, &r.PowerDB, &r.BandwidthHz,
			&r.FreqBand, &r.DetectionCount, &r.FirstSeen, &r.LastSeen, &r.LocationName, &protocol); err != nil {
			return nil, err
		}
		r.RFProtocol = classify.RFProtocol(protocol)
		out = append(out, classifyGoldRow(r))
	}
	return out, rows.Err()
}

// classifyGoldRow applies the §4.8 decision lists to derive a gold asset's
// classification. Silver rows carry no device_category, so category is
// inferred first via classify.InferDeviceCategory the same way the survey
// engine's auto-promotion path does for freshly discovered signals.
func classifyGoldRow(r silverRow) goldRow {
	category := classify.InferDeviceCategory(r.RFProtocol, r.FrequencyHz, true)
	asset := classify.Asset{RFProtocol: r.RFProtocol, DeviceCategory: category}

	ciClass := classify.InferCMDBCIClass(asset)
	purdue, hasPurdue := classify.InferPurdueLevel(asset)

	posture := classify.SecurityPosture("COMPLIANT")
	risk := classify.RiskLevel("LOW")
	if hasPurdue && purdue <= 1 {
		posture = "REQUIRES_REVIEW"
		risk = "HIGH"
	} else if r.RFProtocol == classify.ProtocolUnknown {
		risk = "MEDIUM"
	}

	freqMHz := math.Round(r.FrequencyHz/1e6*10) / 10
	name := fmt.Sprintf("%s_%sMHz", r.FreqBand, formatMHz(freqMHz))

	return goldRow{
		silverRow:       r,
		Name:            name,
		CMDBCIClass:     ciClass,
		PurdueLevel:     purdue,
		HasPurdueLevel:  hasPurdue,
		SecurityPosture: posture,
		RiskLevel:       risk,
	}
}

func formatMHz(v float64) string {
	return fmt.Sprintf("%g", v)
}

func (t *Transformer) recreateRFAssets(ctx context.Context, rows []goldRow) error {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS rf_assets`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE rf_assets (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			asset_type        TEXT NOT NULL DEFAULT 'rf_emitter',
			first_seen        DATETIME NOT NULL,
			last_seen         DATETIME NOT NULL,
			rf_frequency_hz   REAL NOT NULL,
			rf_signal_strength_db REAL NOT NULL,
			rf_bandwidth_hz   REAL,
			rf_protocol       TEXT NOT NULL,
			cmdb_ci_class     TEXT NOT NULL,
			purdue_level      INTEGER,
			security_posture  TEXT NOT NULL,
			risk_level        TEXT NOT NULL,
			source_signal_id  TEXT NOT NULL,
			location_name     TEXT
		)
	`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rf_assets
			(id, name, asset_type, first_seen, last_seen, rf_frequency_hz,
			 rf_signal_strength_db, rf_bandwidth_hz, rf_protocol, cmdb_ci_class,
			 purdue_level, security_posture, risk_level, source_signal_id, location_name)
		VALUES (?, ?, 'rf_emitter', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var purdue sql.NullInt64
		if r.HasPurdueLevel {
			purdue = sql.NullInt64{Int64: int64(r.PurdueLevel), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), r.Name, r.FirstSeen, r.LastSeen,
			r.FrequencyHz, r.PowerDB, r.BandwidthHz, string(r.RFProtocol), string(r.CMDBCIClass),
			purdue, string(r.SecurityPosture), string(r.RiskLevel), r.SignalID, r.LocationName); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RunFullPipeline executes bronze→silver→band-inventory→gold in sequence,
// matching run_full_pipeline in the original: a dry run skips every
// writing step and reports source counts only.
func (t *Transformer) RunFullPipeline(ctx context.Context, opts Options) ([]Result, error) {
	var results []Result

	silver, err := t.BronzeToSilver(ctx, opts)
	if err != nil {
		return results, err
	}
	results = append(results, silver)

	if !opts.DryRun {
		inventory, err := t.CreateBandInventory(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, inventory)
	}

	gold, err := t.SilverToGold(ctx, opts)
	if err != nil {
		return results, err
	}
	results = append(results, gold)

	return results, nil
}
