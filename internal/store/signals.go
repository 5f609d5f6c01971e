package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Signal is a row in the unified signals table (spec.md §4.6): a raw
// spectrum detection, optionally attributed to a survey/segment run and
// optionally partitioned by (location_name, year, month). A detection
// recorded outside a survey (e.g. a watch engine or iot-scan hit) leaves
// SurveyID/SegmentID unset; a detection recorded by a survey leaves the
// partition columns unset unless a location was supplied. Both shapes
// share one table so the medallion bronze→silver transform (§4.7) sees
// every detection regardless of source.
type Signal struct {
	SignalID        string
	SurveyID        sql.NullString
	SegmentID       sql.NullString
	FrequencyHz     float64
	PowerDB         float64
	BandwidthHz     sql.NullFloat64
	FreqBand        sql.NullString
	DetectionCount  int
	FirstSeen       time.Time
	LastSeen        time.Time
	State           string
	RFProtocol      sql.NullString
	Notes           sql.NullString
	PromotedAssetID sql.NullString
	LocationName    sql.NullString
	Year            sql.NullInt64
	Month           sql.NullInt64
}

const signalColumns = `signal_id, survey_id, segment_id, frequency_hz, power_db, bandwidth_hz, freq_band,
	detection_count, first_seen, last_seen, state, rf_protocol, notes, promoted_asset_id,
	location_name, year, month`

// InsertSignal inserts a new bronze signal row, minting an ID if empty and
// deriving (year, month) from FirstSeen if the partition columns are unset.
func (s *Store) InsertSignal(ctx context.Context, sig Signal) (Signal, error) {
	if sig.SignalID == "" {
		sig.SignalID = uuid.NewString()
	}
	if sig.DetectionCount == 0 {
		sig.DetectionCount = 1
	}
	if sig.State == "" {
		sig.State = "discovered"
	}
	now := time.Now()
	if sig.FirstSeen.IsZero() {
		sig.FirstSeen = now
	}
	if sig.LastSeen.IsZero() {
		sig.LastSeen = sig.FirstSeen
	}
	if !sig.Year.Valid {
		sig.Year = sql.NullInt64{Int64: int64(sig.FirstSeen.Year()), Valid: true}
	}
	if !sig.Month.Valid {
		sig.Month = sql.NullInt64{Int64: int64(sig.FirstSeen.Month()), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (`+signalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.SignalID, sig.SurveyID, sig.SegmentID, sig.FrequencyHz, sig.PowerDB, sig.BandwidthHz, sig.FreqBand,
		sig.DetectionCount, sig.FirstSeen, sig.LastSeen, sig.State, sig.RFProtocol, sig.Notes, sig.PromotedAssetID,
		sig.LocationName, sig.Year, sig.Month,
	)
	if err != nil {
		return Signal{}, fmt.Errorf("inserting signal: %w", err)
	}
	return sig, nil
}

// GetSignalsByLocation returns every signal partitioned under locationName,
// pruned to the given year/month when provided.
func (s *Store) GetSignalsByLocation(ctx context.Context, locationName string, year, month int) ([]Signal, error) {
	query := "SELECT " + signalColumns + " FROM signals WHERE location_name = ?"
	args := []any{locationName}
	if year > 0 {
		query += " AND year = ?"
		args = append(args, year)
	}
	if month > 0 {
		query += " AND month = ?"
		args = append(args, month)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying signals by location: %w", err)
	}
	defer closeRows(rows)
	return scanSignalRows(rows)
}

// GetSignalsByState returns every signal currently in the given state.
func (s *Store) GetSignalsByState(ctx context.Context, state string) ([]Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals WHERE state = ?`, state)
	if err != nil {
		return nil, fmt.Errorf("querying signals by state: %w", err)
	}
	defer closeRows(rows)
	return scanSignalRows(rows)
}

func scanSignal(row interface{ Scan(...any) error }) (Signal, error) {
	var sig Signal
	err := row.Scan(
		&sig.SignalID, &sig.SurveyID, &sig.SegmentID, &sig.FrequencyHz, &sig.PowerDB, &sig.BandwidthHz, &sig.FreqBand,
		&sig.DetectionCount, &sig.FirstSeen, &sig.LastSeen, &sig.State, &sig.RFProtocol, &sig.Notes, &sig.PromotedAssetID,
		&sig.LocationName, &sig.Year, &sig.Month,
	)
	return sig, err
}

func scanSignalRows(rows *sql.Rows) ([]Signal, error) {
	var out []Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
