package watch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrequencyRangesCombinesBandsAndCustomRange(t *testing.T) {
	cfg := DefaultConfig("w1", "Test")
	cfg.Bands = []FrequencyBand{BandFMBroadcast, BandNOAAWeather}
	cfg.CustomRange = &FreqRange{StartHz: 1, EndHz: 2}

	ranges := cfg.FrequencyRanges()
	require.Len(t, ranges, 3)
	require.Equal(t, FreqRange{87_500_000, 108_000_000}, ranges[0])
	require.Equal(t, FreqRange{1, 2}, ranges[2])
}

func TestAlertFrequenciesCollectsConditionFrequencies(t *testing.T) {
	f := 146_520_000.0
	cfg := DefaultConfig("w1", "Test")
	cfg.AlertConditions = []AlertCondition{
		{ConditionType: ConditionNewSignal},
		{ConditionType: ConditionThresholdBreach, FrequencyHz: &f},
	}
	require.Equal(t, []float64{f}, cfg.AlertFrequencies())
}

func TestDefaultedConditionFillsCooldownAndTolerance(t *testing.T) {
	c := DefaultedCondition(AlertCondition{ConditionType: ConditionNewSignal})
	require.Equal(t, 50_000.0, c.FrequencyToleranceHz)
	require.Equal(t, 60.0, c.CooldownSeconds)
}

func TestDescribeRendersHumanSummary(t *testing.T) {
	require.Equal(t, "Alert on new signals", AlertCondition{ConditionType: ConditionNewSignal}.Describe())
}
