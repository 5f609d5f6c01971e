package baseline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kx9v/rfscout/internal/scanner"
)

func scanWithPeak(freqHz, powerDB float64) scanner.Result {
	return scanner.Result{Peaks: []scanner.Peak{{FrequencyHz: freqHz, PowerDB: powerDB}}}
}

func TestBaselineNotEstablishedBeforeMinScans(t *testing.T) {
	b := New()
	b.MinScansRequired = 3
	for i := 0; i < 2; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.False(t, b.Established())
	require.False(t, b.IsNewSignal(scanner.Peak{FrequencyHz: 200e6}))
}

func TestBaselineEstablishesAfterMinScans(t *testing.T) {
	b := New()
	b.MinScansRequired = 3
	for i := 0; i < 3; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.True(t, b.Established())
}

func TestIsNewSignalDetectsUnseenFrequency(t *testing.T) {
	b := New()
	b.MinScansRequired = 3
	for i := 0; i < 3; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.False(t, b.IsNewSignal(scanner.Peak{FrequencyHz: 100e6}))
	require.True(t, b.IsNewSignal(scanner.Peak{FrequencyHz: 200e6}))
}

func TestIsNewSignalWithinToleranceIsNotNew(t *testing.T) {
	b := New()
	b.MinScansRequired = 3
	for i := 0; i < 3; i++ {
		b.AddScan(scanWithPeak(100_000_000, -40))
	}
	require.False(t, b.IsNewSignal(scanner.Peak{FrequencyHz: 100_020_000}))
}

func TestIsPowerAnomalyDetectsLargeDeviation(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.False(t, b.IsPowerAnomaly(scanner.Peak{FrequencyHz: 100e6, PowerDB: -41}))
	require.True(t, b.IsPowerAnomaly(scanner.Peak{FrequencyHz: 100e6, PowerDB: -10}))
}

func TestMissingSignalsRequiresStableAndMissThreshold(t *testing.T) {
	b := New()
	b.MissThreshold = 2
	b.MinScansRequired = 5
	for i := 0; i < 5; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.True(t, b.signals[b.freqKey(100e6)].IsStable())

	// Two scans with no peaks at all accrue misses on the tracked signal.
	b.AddScan(scanner.Result{})
	b.AddScan(scanner.Result{})

	missing := b.MissingSignals(scanner.Result{})
	require.Len(t, missing, 1)
	require.InDelta(t, 100e6, missing[0].FrequencyHz, 1)
}

func TestActivityChangeReportsSilenceAsMinus100(t *testing.T) {
	b := New()
	for i := 0; i < 12; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.InDelta(t, -100.0, b.ActivityChange(scanner.Result{}, 0, 0, false), 0.01)
}

func TestActivityChangeZeroWhenUnchanged(t *testing.T) {
	b := New()
	for i := 0; i < 12; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}
	require.InDelta(t, 0.0, b.ActivityChange(scanWithPeak(100e6, -40), 0, 0, false), 1.0)
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.AddScan(scanWithPeak(100e6, -40))
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))
	require.Equal(t, b.Stats(), restored.Stats())
}

func TestClearResetsState(t *testing.T) {
	b := New()
	b.MinScansRequired = 1
	b.AddScan(scanWithPeak(100e6, -40))
	require.True(t, b.Established())

	b.Clear()
	require.False(t, b.Established())
	require.Equal(t, 0, b.Stats().ScanCount)
}
