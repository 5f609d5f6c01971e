package survey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSegmentsIncludesIntersectingPriorityBands(t *testing.T) {
	specs := GenerateSegments(80e6, 110e6, false, 2e6)
	require.NotEmpty(t, specs)

	found := false
	for _, s := range specs {
		if s.Name == "fm_broadcast" {
			found = true
			require.Equal(t, 88e6, s.StartHz)
			require.Equal(t, 108e6, s.EndHz)
		}
	}
	require.True(t, found)
}

func TestGenerateSegmentsOrderedByPriorityThenFrequency(t *testing.T) {
	specs := GenerateSegments(80e6, 470e6, true, 2e6)
	for i := 1; i < len(specs); i++ {
		prev, cur := specs[i-1], specs[i]
		require.True(t, prev.Priority <= cur.Priority)
		if prev.Priority == cur.Priority {
			require.True(t, prev.StartHz <= cur.StartHz)
		}
	}
}

func TestGenerateSegmentsWithoutFullCoverageHasNoGapFill(t *testing.T) {
	specs := GenerateSegments(80e6, 470e6, false, 2e6)
	for _, s := range specs {
		require.NotEqual(t, "gap_fill", s.Name)
	}
}

func TestGenerateSegmentsWithFullCoverageFillsGaps(t *testing.T) {
	specs := GenerateSegments(80e6, 470e6, true, 2e6)
	gapFound := false
	for _, s := range specs {
		if s.Name == "gap_fill" {
			gapFound = true
			require.Equal(t, 5, s.Priority)
		}
	}
	require.True(t, gapFound)
}

func TestGapsComputesSetDifference(t *testing.T) {
	covered := [][2]float64{{100, 200}, {250, 300}}
	got := gaps(0, 400, covered)
	require.Equal(t, [][2]float64{{0, 100}, {200, 250}, {300, 400}}, got)
}

func TestGapsHandlesOverlappingIntervals(t *testing.T) {
	covered := [][2]float64{{100, 250}, {200, 300}}
	got := gaps(0, 400, covered)
	require.Equal(t, [][2]float64{{0, 100}, {300, 400}}, got)
}
