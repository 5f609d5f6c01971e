// Package survey implements the survey manager (spec.md §4.3, C3): it
// decomposes a wide frequency range into prioritized segments, persists
// lifecycle state through internal/store, resumes interrupted surveys, and
// promotes recurring signal detections to long-lived assets.
package survey

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kx9v/rfscout/internal/classify"
	"github.com/kx9v/rfscout/internal/logging"
	"github.com/kx9v/rfscout/internal/scanner"
	"github.com/kx9v/rfscout/internal/store"
)

// AutoPromoteThreshold is the minimum detection_count before a discovered
// signal is considered for promotion to an asset (spec.md §4.3).
const AutoPromoteThreshold = 3

// Engine manages survey lifecycle and segment execution against a Store.
type Engine struct {
	Store   *store.Store
	Scanner *scanner.Scanner
	Log     logging.Logger
}

// New builds a survey Engine over an already-opened store and scanner.
func New(s *store.Store, sc *scanner.Scanner) *Engine {
	return &Engine{Store: s, Scanner: sc, Log: logging.Component(logging.Default(), "survey")}
}

// CreateSurveyOptions parameterizes CreateSurvey; zero values take the
// teacher's defaults (full range coverage, 2 MHz gap step).
type CreateSurveyOptions struct {
	StartHz         float64
	EndHz           float64
	FullCoverage    bool
	CoarseStepHz    float64
	LocationName    string
	AntennaType     string
	ConditionsNotes string
}

// CreateSurvey plans segments for opts and persists the survey and its
// segments (spec.md §4.3).
func (e *Engine) CreateSurvey(ctx context.Context, name string, opts CreateSurveyOptions) (store.Survey, error) {
	if opts.EndHz == 0 {
		opts.StartHz, opts.EndHz = RTLMinHz, RTLMaxHz
	}
	if opts.CoarseStepHz == 0 {
		opts.CoarseStepHz = 2_000_000
	}

	specs := GenerateSegments(opts.StartHz, opts.EndHz, opts.FullCoverage, opts.CoarseStepHz)

	var runNumber sql.NullInt64
	if opts.LocationName != "" {
		n, err := e.Store.NextRunNumber(ctx, opts.LocationName)
		if err != nil {
			return store.Survey{}, err
		}
		runNumber = sql.NullInt64{Int64: int64(n), Valid: true}
	}

	sv, err := e.Store.InsertSurvey(ctx, store.Survey{
		Name:          name,
		Status:        "pending",
		StartFreqHz:   opts.StartHz,
		EndFreqHz:     opts.EndHz,
		TotalSegments: len(specs),
		Config: map[string]any{
			"full_coverage":  opts.FullCoverage,
			"coarse_step_hz": opts.CoarseStepHz,
		},
		LocationName:    nullString(opts.LocationName),
		AntennaType:     nullString(opts.AntennaType),
		ConditionsNotes: nullString(opts.ConditionsNotes),
		RunNumber:       runNumber,
	})
	if err != nil {
		return store.Survey{}, err
	}

	for _, spec := range specs {
		err := e.Store.InsertSegment(ctx, store.Segment{
			SegmentID:   uuid.NewString(),
			SurveyID:    sv.SurveyID,
			Name:        sql.NullString{String: spec.Name, Valid: true},
			StartFreqHz: spec.StartHz,
			EndFreqHz:   spec.EndHz,
			Priority:    spec.Priority,
			StepHz:      sql.NullFloat64{Float64: spec.StepHz, Valid: true},
			DwellTimeMs: sql.NullFloat64{Float64: spec.DwellTimeMs, Valid: true},
			Status:      "pending",
		})
		if err != nil {
			return store.Survey{}, err
		}
	}

	e.Log.Info("created survey",
		logging.SurveyID(sv.SurveyID),
		logging.Field{Key: "segments", Value: len(specs)},
	)
	return sv, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// SegmentResult reports the outcome of executing one segment.
type SegmentResult struct {
	SegmentID       string
	Success         bool
	SignalsFound    int
	NoiseFloorDB    float64
	ScanTimeSeconds float64
	PromotedCount   int
	Error           string
}

// ExecuteSegment scans one segment, records its peaks as survey signals,
// completes (or fails) the segment, and optionally auto-promotes qualifying
// signals to assets (spec.md §4.3).
func (e *Engine) ExecuteSegment(ctx context.Context, seg store.Segment, autoPromote bool) SegmentResult {
	if _, err := e.Store.StartSegment(ctx, seg.SegmentID); err != nil {
		return SegmentResult{SegmentID: seg.SegmentID, Error: err.Error()}
	}

	sv, err := e.Store.GetSurvey(ctx, seg.SurveyID)
	if err == nil && sv.Status == "pending" {
		_ = e.Store.UpdateSurveyStatus(ctx, seg.SurveyID, "in_progress")
	}

	start := time.Now()
	stepHz := 0.0
	if seg.StepHz.Valid {
		stepHz = seg.StepHz.Float64
	}
	dwellMs := 100.0
	if seg.DwellTimeMs.Valid {
		dwellMs = seg.DwellTimeMs.Float64
	}

	result, err := e.Scanner.Scan(ctx, seg.StartFreqHz, seg.EndFreqHz, stepHz, dwellMs)
	if err != nil {
		_ = e.Store.FailSegment(ctx, seg.SegmentID, err.Error())
		return SegmentResult{SegmentID: seg.SegmentID, Error: err.Error()}
	}
	scanTime := time.Since(start).Seconds()

	for _, peak := range result.Peaks {
		var bw sql.NullFloat64
		if peak.BandwidthHz > 0 {
			bw = sql.NullFloat64{Float64: peak.BandwidthHz, Valid: true}
		}
		freqBand := BandForFrequency(peak.FrequencyHz)
		if _, err := e.Store.RecordSignal(ctx, seg.SurveyID, seg.SegmentID, peak.FrequencyHz, peak.PowerDB, bw, freqBand); err != nil {
			e.Log.Warn("failed to record signal", logging.Err(err))
		}
	}

	if err := e.Store.CompleteSegment(ctx, seg.SegmentID, len(result.Peaks), result.NoiseFloorDB, scanTime); err != nil {
		return SegmentResult{SegmentID: seg.SegmentID, Error: err.Error()}
	}

	promoted := 0
	if autoPromote {
		promoted, err = e.autoPromoteSignals(ctx, seg.SurveyID)
		if err != nil {
			e.Log.Warn("auto-promotion failed", logging.Err(err))
		}
	}

	return SegmentResult{
		SegmentID:       seg.SegmentID,
		Success:         true,
		SignalsFound:    len(result.Peaks),
		NoiseFloorDB:    result.NoiseFloorDB,
		ScanTimeSeconds: scanTime,
		PromotedCount:   promoted,
	}
}

// ExecuteNext runs the next pending segment, or returns ok=false if the
// survey has no pending segments left.
func (e *Engine) ExecuteNext(ctx context.Context, surveyID string, autoPromote bool) (SegmentResult, bool) {
	seg, err := e.Store.GetNextSegment(ctx, surveyID)
	if err != nil {
		return SegmentResult{}, false
	}
	return e.ExecuteSegment(ctx, seg, autoPromote), true
}

// ReclaimStale resets in_progress segments last updated more than olderThan
// ago back to pending, so a survey interrupted by a crashed or killed scan
// can be resumed instead of staying stuck on a segment no process will ever
// complete. No automatic heartbeat calls this; per spec.md §9 it is an
// explicit operator-invoked recovery operation. Returns the number of
// segments reclaimed.
func (e *Engine) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return e.Store.ReclaimStaleSegments(ctx, olderThan)
}

// SurveyResult reports the overall outcome of a RunContinuous call.
type SurveyResult struct {
	SurveyID           string
	SegmentsCompleted  int
	TotalSignals       int
	TotalTimeSeconds   float64
	Errors             []string
	Complete           bool
}

// RunContinuous executes segments until the survey is exhausted or
// maxSegments is reached (0 = unbounded), invoking onSegment after each.
func (e *Engine) RunContinuous(ctx context.Context, surveyID string, maxSegments int, autoPromote bool, onSegment func(store.Segment, SegmentResult)) (SurveyResult, error) {
	start := time.Now()
	var res SurveyResult
	res.SurveyID = surveyID

	for {
		if maxSegments > 0 && res.SegmentsCompleted >= maxSegments {
			break
		}
		seg, err := e.Store.GetNextSegment(ctx, surveyID)
		if err != nil {
			break
		}

		result := e.ExecuteSegment(ctx, seg, autoPromote)
		if result.Success {
			res.SegmentsCompleted++
			res.TotalSignals += result.SignalsFound
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", seg.SegmentID, result.Error))
		}
		if onSegment != nil {
			onSegment(seg, result)
		}

		select {
		case <-ctx.Done():
			res.TotalTimeSeconds = time.Since(start).Seconds()
			return res, ctx.Err()
		default:
		}
	}

	res.TotalTimeSeconds = time.Since(start).Seconds()
	sv, err := e.Store.GetSurvey(ctx, surveyID)
	if err == nil {
		res.Complete = sv.Status == "completed"
	}
	return res, nil
}

// autoPromoteSignals promotes every discovered signal in surveyID with at
// least AutoPromoteThreshold detections (spec.md §4.3).
func (e *Engine) autoPromoteSignals(ctx context.Context, surveyID string) (int, error) {
	signals, err := e.Store.GetSignalsBySurvey(ctx, surveyID, "discovered", AutoPromoteThreshold)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, sig := range signals {
		asset, err := e.promoteSignalToAsset(ctx, sig)
		if err != nil {
			e.Log.Warn("failed to promote signal",
				logging.SignalID(sig.SignalID),
				logging.Err(err))
			continue
		}
		if err := e.Store.UpdateSignalState(ctx, sig.SignalID, "promoted", asset.ID); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// promoteSignalToAsset creates (or updates) an asset from a recurring
// signal, applying the classification rules of §4.8 when creating new
// (spec.md §4.3 step 3).
func (e *Engine) promoteSignalToAsset(ctx context.Context, sig store.Signal) (store.Asset, error) {
	const toleranceHz = 50_000

	existing, err := e.Store.FindAssetsByFrequency(ctx, sig.FrequencyHz, toleranceHz)
	if err != nil {
		return store.Asset{}, err
	}
	if len(existing) > 0 {
		asset := existing[0]
		asset.LastSeen = time.Now()
		if !asset.RFSignalStrengthDB.Valid || sig.PowerDB > asset.RFSignalStrengthDB.Float64 {
			asset.RFSignalStrengthDB = sql.NullFloat64{Float64: sig.PowerDB, Valid: true}
		}
		if err := e.Store.UpdateAsset(ctx, asset); err != nil {
			return store.Asset{}, err
		}
		return asset, nil
	}

	classified := classify.AutoClassify(classify.Asset{
		RFProtocol:    classify.ProtocolUnknown,
		RFFrequencyHz: sig.FrequencyHz,
		HasFrequency:  true,
	}, nil, nil, nil)

	asset := store.Asset{
		Name:               fmt.Sprintf("Signal at %.3f MHz", sig.FrequencyHz/1e6),
		AssetType:          "rf_only",
		RFFrequencyHz:      sql.NullFloat64{Float64: sig.FrequencyHz, Valid: true},
		RFSignalStrengthDB: sql.NullFloat64{Float64: sig.PowerDB, Valid: true},
		RFBandwidthHz:      sig.BandwidthHz,
		RFProtocol:         sql.NullString{String: string(classified.RFProtocol), Valid: true},
		CMDBCIClass:        sql.NullString{String: string(classified.CMDBCIClass), Valid: true},
		DeviceCategory:     sql.NullString{String: string(classified.DeviceCategory), Valid: true},
		SecurityPosture:    sql.NullString{String: string(classified.SecurityPosture), Valid: true},
		RiskLevel:          sql.NullString{String: string(classified.RiskLevel), Valid: true},
		DiscoverySource:    "spectrum_survey",
		Metadata: map[string]any{
			"survey_id":       sig.SurveyID.String,
			"detection_count": sig.DetectionCount,
			"first_seen":      sig.FirstSeen,
		},
	}
	if classified.HasPurdueLevel {
		asset.PurdueLevel = sql.NullInt64{Int64: int64(classified.PurdueLevel), Valid: true}
	}

	return e.Store.InsertAsset(ctx, asset)
}
