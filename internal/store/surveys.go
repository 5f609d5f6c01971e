package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Survey is a persisted spectrum_surveys row (spec.md §3).
type Survey struct {
	SurveyID          string
	Name              string
	Status            string
	CreatedAt         time.Time
	StartedAt         sql.NullTime
	CompletedAt       sql.NullTime
	LastActivityAt    sql.NullTime
	StartFreqHz       float64
	EndFreqHz         float64
	TotalSegments     int
	CompletedSegments int
	CompletionPct     float64
	TotalSignalsFound int
	Config            map[string]any
	LocationName      sql.NullString
	AntennaType       sql.NullString
	ConditionsNotes   sql.NullString
	BaselineSurveyID  sql.NullString
	RunNumber         sql.NullInt64
}

// Segment is a persisted survey_segments row (spec.md §3).
type Segment struct {
	SegmentID       string
	SurveyID        string
	Name            sql.NullString
	StartFreqHz     float64
	EndFreqHz       float64
	Priority        int
	StepHz          sql.NullFloat64
	DwellTimeMs     sql.NullFloat64
	Status          string
	ScanID          sql.NullString
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
	UpdatedAt       sql.NullTime
	SignalsFound    int
	NoiseFloorDB    sql.NullFloat64
	ScanTimeSeconds sql.NullFloat64
	ErrorMessage    sql.NullString
}

const surveyColumns = `survey_id, name, status, created_at, started_at, completed_at, last_activity_at,
	start_freq_hz, end_freq_hz, total_segments, completed_segments, completion_pct, total_signals_found,
	config, location_name, antenna_type, conditions_notes, baseline_survey_id, run_number`

// NextRunNumber returns 1 + the highest run_number recorded for
// locationName, for auto-incrementing per-location survey runs.
func (s *Store) NextRunNumber(ctx context.Context, locationName string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(run_number) FROM spectrum_surveys WHERE location_name = ?", locationName,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("computing next run number: %w", err)
	}
	return int(n.Int64) + 1, nil
}

// InsertSurvey persists a new survey, minting an ID if empty.
func (s *Store) InsertSurvey(ctx context.Context, sv Survey) (Survey, error) {
	if sv.SurveyID == "" {
		sv.SurveyID = uuid.NewString()
	}
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now()
	}
	config, err := marshalMetadata(sv.Config)
	if err != nil {
		return Survey{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO spectrum_surveys (`+surveyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.SurveyID, sv.Name, sv.Status, sv.CreatedAt, sv.StartedAt, sv.CompletedAt, sv.LastActivityAt,
		sv.StartFreqHz, sv.EndFreqHz, sv.TotalSegments, sv.CompletedSegments, sv.CompletionPct, sv.TotalSignalsFound,
		config, sv.LocationName, sv.AntennaType, sv.ConditionsNotes, sv.BaselineSurveyID, sv.RunNumber,
	)
	if err != nil {
		return Survey{}, fmt.Errorf("inserting survey: %w", err)
	}
	return sv, nil
}

func scanSurvey(row interface{ Scan(...any) error }) (Survey, error) {
	var sv Survey
	var config sql.NullString
	err := row.Scan(
		&sv.SurveyID, &sv.Name, &sv.Status, &sv.CreatedAt, &sv.StartedAt, &sv.CompletedAt, &sv.LastActivityAt,
		&sv.StartFreqHz, &sv.EndFreqHz, &sv.TotalSegments, &sv.CompletedSegments, &sv.CompletionPct, &sv.TotalSignalsFound,
		&config, &sv.LocationName, &sv.AntennaType, &sv.ConditionsNotes, &sv.BaselineSurveyID, &sv.RunNumber,
	)
	if err != nil {
		return Survey{}, err
	}
	if config.Valid && config.String != "" {
		if err := json.Unmarshal([]byte(config.String), &sv.Config); err != nil {
			return Survey{}, fmt.Errorf("decoding survey config: %w", err)
		}
	}
	return sv, nil
}

// GetSurvey returns the survey with the given id, or sql.ErrNoRows.
func (s *Store) GetSurvey(ctx context.Context, surveyID string) (Survey, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+surveyColumns+" FROM spectrum_surveys WHERE survey_id = ?", surveyID)
	return scanSurvey(row)
}

// ListSurveys returns every survey, most recently created first.
func (s *Store) ListSurveys(ctx context.Context) ([]Survey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+surveyColumns+" FROM spectrum_surveys ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing surveys: %w", err)
	}
	defer closeRows(rows)

	var out []Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// UpdateSurveyStatus updates status and, for in_progress/completed
// transitions, stamps started_at/completed_at (started_at only if unset).
func (s *Store) UpdateSurveyStatus(ctx context.Context, surveyID, status string) error {
	now := time.Now()
	var err error
	switch status {
	case "in_progress":
		_, err = s.db.ExecContext(ctx, `
			UPDATE spectrum_surveys SET status = ?, last_activity_at = ?, started_at = COALESCE(started_at, ?)
			WHERE survey_id = ?`, status, now, now, surveyID)
	case "completed":
		_, err = s.db.ExecContext(ctx, `
			UPDATE spectrum_surveys SET status = ?, last_activity_at = ?, completed_at = ?
			WHERE survey_id = ?`, status, now, now, surveyID)
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE spectrum_surveys SET status = ?, last_activity_at = ? WHERE survey_id = ?`, status, now, surveyID)
	}
	if err != nil {
		return fmt.Errorf("updating survey status: %w", err)
	}
	return nil
}

// UpdateSurveyProgress recomputes and persists completed_segments,
// total_signals_found, and completion_pct (spec.md §4.3).
func (s *Store) UpdateSurveyProgress(ctx context.Context, surveyID string, completedSegments, totalSignals int) error {
	sv, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return err
	}
	pct := 0.0
	if sv.TotalSegments > 0 {
		pct = float64(completedSegments) / float64(sv.TotalSegments) * 100
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE spectrum_surveys
		SET completed_segments = ?, total_signals_found = ?, completion_pct = ?, last_activity_at = ?
		WHERE survey_id = ?`, completedSegments, totalSignals, pct, time.Now(), surveyID)
	if err != nil {
		return fmt.Errorf("updating survey progress: %w", err)
	}
	return nil
}

// InsertSegment persists a new survey_segments row.
func (s *Store) InsertSegment(ctx context.Context, seg Segment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO survey_segments (
			segment_id, survey_id, name, start_freq_hz, end_freq_hz,
			priority, step_hz, dwell_time_ms, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.SegmentID, seg.SurveyID, seg.Name, seg.StartFreqHz, seg.EndFreqHz,
		seg.Priority, seg.StepHz, seg.DwellTimeMs, seg.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting segment: %w", err)
	}
	return nil
}

func scanSegment(row interface{ Scan(...any) error }) (Segment, error) {
	var seg Segment
	err := row.Scan(
		&seg.SegmentID, &seg.SurveyID, &seg.Name, &seg.StartFreqHz, &seg.EndFreqHz,
		&seg.Priority, &seg.StepHz, &seg.DwellTimeMs, &seg.Status, &seg.ScanID,
		&seg.StartedAt, &seg.CompletedAt, &seg.UpdatedAt, &seg.SignalsFound, &seg.NoiseFloorDB,
		&seg.ScanTimeSeconds, &seg.ErrorMessage,
	)
	return seg, err
}

const segmentColumns = `segment_id, survey_id, name, start_freq_hz, end_freq_hz,
	priority, step_hz, dwell_time_ms, status, scan_id,
	started_at, completed_at, updated_at, signals_found, noise_floor_db,
	scan_time_seconds, error_message`

// GetSegment returns the segment with the given id, or sql.ErrNoRows.
func (s *Store) GetSegment(ctx context.Context, segmentID string) (Segment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+segmentColumns+" FROM survey_segments WHERE segment_id = ?", segmentID)
	return scanSegment(row)
}

// GetSegments returns every segment of a survey, ordered by (priority,
// start_freq_hz).
func (s *Store) GetSegments(ctx context.Context, surveyID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+segmentColumns+` FROM survey_segments
		WHERE survey_id = ? ORDER BY priority, start_freq_hz`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	defer closeRows(rows)

	var out []Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// GetNextSegment returns the lowest (priority, start_freq_hz) pending
// segment for a survey, or sql.ErrNoRows if none remain (spec.md §4.3).
func (s *Store) GetNextSegment(ctx context.Context, surveyID string) (Segment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+segmentColumns+` FROM survey_segments
		WHERE survey_id = ? AND status = 'pending'
		ORDER BY priority, start_freq_hz LIMIT 1`, surveyID)
	return scanSegment(row)
}

// StartSegment atomically transitions a segment pending → in_progress,
// stamping it with a freshly-minted scan_id.
func (s *Store) StartSegment(ctx context.Context, segmentID string) (string, error) {
	scanID := uuid.NewString()
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE survey_segments SET status = 'in_progress', started_at = ?, updated_at = ?, scan_id = ?
		WHERE segment_id = ?`, now, now, scanID, segmentID)
	if err != nil {
		return "", fmt.Errorf("starting segment: %w", err)
	}
	return scanID, nil
}

// CompleteSegment transitions a segment to completed and records its scan
// outcome, then recomputes the parent survey's progress (spec.md §4.3).
func (s *Store) CompleteSegment(ctx context.Context, segmentID string, signalsFound int, noiseFloorDB, scanTimeSeconds float64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE survey_segments
		SET status = 'completed', completed_at = ?, updated_at = ?, signals_found = ?, noise_floor_db = ?, scan_time_seconds = ?
		WHERE segment_id = ?`, now, now, signalsFound, noiseFloorDB, scanTimeSeconds, segmentID)
	if err != nil {
		return fmt.Errorf("completing segment: %w", err)
	}

	seg, err := s.GetSegment(ctx, segmentID)
	if err != nil {
		return err
	}
	return s.refreshSurveyProgress(ctx, seg.SurveyID)
}

// FailSegment transitions a segment to failed with an error message. Per
// spec.md §4.3's resolved open question, a failed segment does not advance
// completed_segments and therefore never by itself completes the survey.
func (s *Store) FailSegment(ctx context.Context, segmentID, errMsg string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE survey_segments SET status = 'failed', completed_at = ?, updated_at = ?, error_message = ?
		WHERE segment_id = ?`, now, now, errMsg, segmentID)
	if err != nil {
		return fmt.Errorf("failing segment: %w", err)
	}
	return nil
}

// ReclaimStaleSegments resets in_progress segments whose updated_at is older
// than olderThan back to pending, for an operator to recover a survey after
// a crashed or killed scan left segments stuck mid-flight (spec.md §9: no
// automatic heartbeat exists, so this is never called on a timer — an
// operator invokes it explicitly). Returns the number of segments reset.
func (s *Store) ReclaimStaleSegments(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey_segments
		SET status = 'pending', updated_at = ?, scan_id = NULL, started_at = NULL
		WHERE status = 'in_progress' AND updated_at < ?`, time.Now(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stale segments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reclaimed segments: %w", err)
	}
	return int(n), nil
}

func (s *Store) refreshSurveyProgress(ctx context.Context, surveyID string) error {
	var completed int
	var totalSignals sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'completed'), SUM(signals_found)
		FROM survey_segments WHERE survey_id = ?`, surveyID,
	).Scan(&completed, &totalSignals)
	if err != nil {
		return fmt.Errorf("aggregating segment progress: %w", err)
	}

	if err := s.UpdateSurveyProgress(ctx, surveyID, completed, int(totalSignals.Int64)); err != nil {
		return err
	}

	sv, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return err
	}
	if completed >= sv.TotalSegments && sv.TotalSegments > 0 {
		return s.UpdateSurveyStatus(ctx, surveyID, "completed")
	}
	return nil
}

// RecordSignal records a detected peak against a survey, deduplicating
// against any existing signal of the same survey within 50 kHz (spec.md
// §4.3): an existing match has its detection_count incremented, last_seen
// refreshed, and power_db raised to max(old, new); otherwise a new row is
// inserted into the same unified signals table the medallion bronze layer
// reads from (spec.md §9 open question 1), with freqBand carrying the
// catalogued band name the caller already computed (empty if none).
func (s *Store) RecordSignal(ctx context.Context, surveyID, segmentID string, frequencyHz, powerDB float64, bandwidthHz sql.NullFloat64, freqBand string) (Signal, error) {
	const toleranceHz = 50_000

	row := s.db.QueryRowContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE survey_id = ? AND ABS(frequency_hz - ?) < ?
		LIMIT 1`, surveyID, frequencyHz, toleranceHz)

	existing, err := scanSignal(row)
	now := time.Now()

	switch {
	case err == sql.ErrNoRows:
		sig := Signal{
			SignalID:       uuid.NewString(),
			SurveyID:       sql.NullString{String: surveyID, Valid: surveyID != ""},
			SegmentID:      sql.NullString{String: segmentID, Valid: segmentID != ""},
			FrequencyHz:    frequencyHz,
			PowerDB:        powerDB,
			BandwidthHz:    bandwidthHz,
			FreqBand:       sql.NullString{String: freqBand, Valid: freqBand != ""},
			FirstSeen:      now,
			LastSeen:       now,
			DetectionCount: 1,
			State:          "discovered",
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO signals (
				signal_id, survey_id, segment_id, frequency_hz, power_db,
				bandwidth_hz, freq_band, first_seen, last_seen, detection_count, state
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sig.SignalID, sig.SurveyID, sig.SegmentID, sig.FrequencyHz, sig.PowerDB,
			sig.BandwidthHz, sig.FreqBand, sig.FirstSeen, sig.LastSeen, sig.DetectionCount, sig.State,
		)
		if err != nil {
			return Signal{}, fmt.Errorf("inserting survey signal: %w", err)
		}
		return sig, nil

	case err != nil:
		return Signal{}, fmt.Errorf("looking up existing survey signal: %w", err)

	default:
		newCount := existing.DetectionCount + 1
		newPower := existing.PowerDB
		if powerDB > newPower {
			newPower = powerDB
		}
		_, err = s.db.ExecContext(ctx, `
			UPDATE signals SET last_seen = ?, detection_count = ?, power_db = ?
			WHERE signal_id = ?`, now, newCount, newPower, existing.SignalID)
		if err != nil {
			return Signal{}, fmt.Errorf("updating survey signal: %w", err)
		}
		existing.LastSeen = now
		existing.DetectionCount = newCount
		existing.PowerDB = newPower
		return existing, nil
	}
}

// GetSignalsBySurvey returns signals recorded against a survey, optionally
// filtered by state, with at least minDetections detections.
func (s *Store) GetSignalsBySurvey(ctx context.Context, surveyID, state string, minDetections int) ([]Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals WHERE survey_id = ? AND detection_count >= ?`
	args := []any{surveyID, minDetections}
	if state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}
	query += " ORDER BY frequency_hz"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying survey signals: %w", err)
	}
	defer closeRows(rows)
	return scanSignalRows(rows)
}

// UpdateSignalState transitions a survey signal's state and, when
// promotedAssetID is non-empty, records the promoted asset link.
func (s *Store) UpdateSignalState(ctx context.Context, signalID, state, promotedAssetID string) error {
	if promotedAssetID != "" {
		_, err := s.db.ExecContext(ctx, `
			UPDATE signals SET state = ?, promoted_asset_id = ? WHERE signal_id = ?`,
			state, promotedAssetID, signalID)
		if err != nil {
			return fmt.Errorf("updating survey signal state: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE signals SET state = ? WHERE signal_id = ?`, state, signalID)
	if err != nil {
		return fmt.Errorf("updating survey signal state: %w", err)
	}
	return nil
}
