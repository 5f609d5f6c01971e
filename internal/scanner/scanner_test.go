package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kx9v/rfscout/internal/tuner"
)

func TestScanEmptyBandFindsNoPeaks(t *testing.T) {
	mock := tuner.NewMock(1)
	mock.NoiseFloorDB = -60

	s := New(mock)
	s.FFTSize = 1024

	res, err := s.Scan(context.Background(), 100e6, 101e6, 500e3, 10)
	require.NoError(t, err)
	require.Empty(t, res.Peaks)
	require.InDelta(t, -60, res.NoiseFloorDB, 10)
}

func TestScanSingleToneFindsOnePeakNearInjectedFrequency(t *testing.T) {
	mock := tuner.NewMock(2)
	mock.NoiseFloorDB = -60
	mock.Tones = []tuner.InjectedTone{{FrequencyHz: 100_300_000, PowerDB: -10}}

	s := New(mock)
	s.FFTSize = 1024

	res, err := s.Scan(context.Background(), 100e6, 100.6e6, 200e3, 20)
	require.NoError(t, err)
	require.NotEmpty(t, res.Peaks)

	found := false
	for _, p := range res.Peaks {
		if diff := p.FrequencyHz - 100_300_000; diff > -50_000 && diff < 50_000 {
			found = true
			require.Greater(t, p.PowerDB, -25.0)
		}
	}
	require.True(t, found, "expected a peak within 50kHz of the injected tone, got %+v", res.Peaks)
}

func TestQuickScanFindsInjectedTone(t *testing.T) {
	mock := tuner.NewMock(3)
	mock.Tones = []tuner.InjectedTone{{FrequencyHz: 433_000_000, PowerDB: -5}}

	s := New(mock)
	s.FFTSize = 1024

	peaks, err := s.QuickScan(context.Background(), 433_000_000, 2_000_000)
	require.NoError(t, err)
	require.NotEmpty(t, peaks)
}

func TestReadWithRetryExhaustsBoundedAttemptsOnPersistentUSBOverflow(t *testing.T) {
	mock := tuner.NewMock(4)
	mock.FailAfterReads = 1 // fails every read from the second call onward

	s := New(mock)
	s.FFTSize = 1024
	s.USBRetries = 3

	require.NoError(t, mock.Open(context.Background(), s.SampleRate, 100e6, "auto", 0, 0))
	defer mock.Close()

	_, err := s.readWithRetry(context.Background(), 4096)
	require.NoError(t, err) // first read (reads==1) still succeeds

	_, err = s.readWithRetry(context.Background(), 4096)
	require.Error(t, err) // subsequent reads fail persistently; retries bounded by USBRetries
}

func TestMergePeaksCombinesWithin50kHzKeepingHigherPower(t *testing.T) {
	in := []Peak{
		{FrequencyHz: 100_000_000, PowerDB: -20},
		{FrequencyHz: 100_030_000, PowerDB: -10},
		{FrequencyHz: 200_000_000, PowerDB: -15},
	}
	merged := MergePeaks(in, mergeThresholdHz)
	require.Len(t, merged, 2)

	var near100 Peak
	for _, p := range merged {
		if p.FrequencyHz < 150_000_000 {
			near100 = p
		}
	}
	require.Equal(t, -10.0, near100.PowerDB)
}

func TestMergePeaksIsIdempotent(t *testing.T) {
	in := []Peak{
		{FrequencyHz: 100_000_000, PowerDB: -20},
		{FrequencyHz: 100_030_000, PowerDB: -10},
		{FrequencyHz: 200_000_000, PowerDB: -15},
	}
	once := MergePeaks(in, mergeThresholdHz)
	twice := MergePeaks(once, mergeThresholdHz)
	require.Equal(t, once, twice)
}

func TestMergePeaksEmptyInput(t *testing.T) {
	require.Nil(t, MergePeaks(nil, mergeThresholdHz))
}
