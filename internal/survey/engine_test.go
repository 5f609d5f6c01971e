package survey

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kx9v/rfscout/internal/scanner"
	"github.com/kx9v/rfscout/internal/store"
	"github.com/kx9v/rfscout/internal/tuner"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := tuner.NewMock(42)
	mock.Tones = []tuner.InjectedTone{{FrequencyHz: 100_300_000, PowerDB: -10}}
	sc := scanner.New(mock)
	sc.FFTSize = 512

	return New(s, sc)
}

func TestCreateSurveyPersistsSegments(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	sv, err := e.CreateSurvey(ctx, "Test Sweep", CreateSurveyOptions{
		StartHz: 88e6, EndHz: 108e6, FullCoverage: true, CoarseStepHz: 2e6,
	})
	require.NoError(t, err)
	require.Greater(t, sv.TotalSegments, 0)

	segs, err := e.Store.GetSegments(ctx, sv.SurveyID)
	require.NoError(t, err)
	require.Len(t, segs, sv.TotalSegments)
}

func TestExecuteNextRunsPendingSegmentAndRecordsSignals(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	sv, err := e.CreateSurvey(ctx, "Single Band", CreateSurveyOptions{
		StartHz: 100e6, EndHz: 100.6e6, FullCoverage: false,
	})
	require.NoError(t, err)

	result, ok := e.ExecuteNext(ctx, sv.SurveyID, true)
	require.True(t, ok)
	require.True(t, result.Success)

	updated, err := e.Store.GetSurvey(ctx, sv.SurveyID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.CompletedSegments)
}

func TestExecuteNextReturnsFalseWhenSurveyExhausted(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	sv, err := e.CreateSurvey(ctx, "Tiny", CreateSurveyOptions{StartHz: 1, EndHz: 1_000_000, FullCoverage: false})
	require.NoError(t, err)

	for {
		_, ok := e.ExecuteNext(ctx, sv.SurveyID, false)
		if !ok {
			break
		}
	}

	_, ok := e.ExecuteNext(ctx, sv.SurveyID, false)
	require.False(t, ok)
}

func TestAutoPromoteCreatesAssetAfterThreeDetections(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	const freqHz = 100_300_000.0
	for i := 0; i < AutoPromoteThreshold; i++ {
		_, err := e.Store.RecordSignal(ctx, "survey-promote", "seg-promote", freqHz, -15, sql.NullFloat64{}, "fm_broadcast")
		require.NoError(t, err)
	}

	promoted, err := e.autoPromoteSignals(ctx, "survey-promote")
	require.NoError(t, err)
	require.Equal(t, 1, promoted)

	assets, err := e.Store.FindAssetsByFrequency(ctx, freqHz, 50_000)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, "rf_only", assets[0].AssetType)
}
