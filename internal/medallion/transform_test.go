package medallion

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kx9v/rfscout/internal/store"
)

func seedSignal(t *testing.T, s *store.Store, freqBand string, powerDB float64, detections int, freqHz float64) {
	t.Helper()
	now := time.Now()
	sig := store.Signal{
		FrequencyHz:    freqHz,
		PowerDB:        powerDB,
		FreqBand:       sql.NullString{String: freqBand, Valid: true},
		DetectionCount: detections,
		FirstSeen:      now,
		LastSeen:       now,
	}
	_, err := s.InsertSignal(context.Background(), sig)
	require.NoError(t, err)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "medallion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBronzeToSilverExcludesLowPowerAndUnknownBands(t *testing.T) {
	s := openTestStore(t)
	seedSignal(t, s, "fm_broadcast", 5, 2, 100_300_000)
	seedSignal(t, s, "unknown", 20, 5, 200_000_000)
	seedSignal(t, s, "gap_fill", 20, 5, 300_000_000)
	seedSignal(t, s, "ism_433", -5, 2, 433_500_000)

	tr := New(s.DB(), nil)
	res, err := tr.BronzeToSilver(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 1, res.RowsCreated)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM verified_signals`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestBronzeToSilverDryRunWritesNothing(t *testing.T) {
	s := openTestStore(t)
	seedSignal(t, s, "fm_broadcast", 5, 2, 100_300_000)

	opts := DefaultOptions()
	opts.DryRun = true
	tr := New(s.DB(), nil)
	res, err := tr.BronzeToSilver(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowsSource)
	require.Equal(t, 0, res.RowsCreated)

	var exists int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='verified_signals'`).Scan(&exists))
	require.Equal(t, 0, exists)
}

func TestBronzeToSilverSeesSignalsRecordedBySurveyEngine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.RecordSignal(ctx, "survey-1", "seg-1", 100_300_000, 12, sql.NullFloat64{}, "fm_broadcast")
		require.NoError(t, err)
	}

	tr := New(s.DB(), nil)
	res, err := tr.BronzeToSilver(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 1, res.RowsCreated)
}

func TestSilverToGoldRequiresSilverLayerFirst(t *testing.T) {
	s := openTestStore(t)
	tr := New(s.DB(), nil)
	_, err := tr.SilverToGold(context.Background(), DefaultOptions())
	require.Error(t, err)
}

func TestRunFullPipelineProducesMonotonicCounts(t *testing.T) {
	s := openTestStore(t)
	seedSignal(t, s, "fm_broadcast", 15, 3, 100_300_000)
	seedSignal(t, s, "fm_broadcast", 2, 3, 101_300_000)
	seedSignal(t, s, "ism_433", 15, 3, 433_500_000)

	tr := New(s.DB(), nil)
	results, err := tr.RunFullPipeline(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)

	var bronzeCount, silverCount, goldCount int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM signals`).Scan(&bronzeCount))
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM verified_signals`).Scan(&silverCount))
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM rf_assets`).Scan(&goldCount))

	require.LessOrEqual(t, silverCount, bronzeCount)
	require.LessOrEqual(t, goldCount, silverCount)
	require.Equal(t, 1, goldCount)

	var protocol, ciClass, risk string
	require.NoError(t, s.DB().QueryRow(
		`SELECT rf_protocol, cmdb_ci_class, risk_level FROM rf_assets LIMIT 1`,
	).Scan(&protocol, &ciClass, &risk))
	require.Equal(t, "fm_broadcast", protocol)
	require.Equal(t, "rf_emitter", ciClass)
	require.Equal(t, "LOW", risk)
}
