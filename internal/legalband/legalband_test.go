package legalband

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupMatchesFMBroadcast(t *testing.T) {
	label, ok := Lookup(98.5)
	require.True(t, ok)
	require.Equal(t, "FM broadcast", label)
}

func TestLookupMissesUnlistedFrequency(t *testing.T) {
	_, ok := Lookup(12.0)
	require.False(t, ok)
}

func TestLookupCautionMatchesMilitaryAviation(t *testing.T) {
	label, ok := LookupCaution(300.0)
	require.True(t, ok)
	require.Equal(t, "military aviation", label)
}

func TestBandContainsIsInclusiveAtEdges(t *testing.T) {
	b := Band{StartMHz: 100, EndMHz: 200, Label: "test"}
	require.True(t, b.Contains(100))
	require.True(t, b.Contains(200))
	require.False(t, b.Contains(99.999))
}
