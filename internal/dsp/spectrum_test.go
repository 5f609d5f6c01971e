package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// syntheticTone builds n complex samples of a tone at offsetHz relative to
// baseband, sampled at sampleRate.
func syntheticTone(n int, sampleRate, offsetHz float64) []complex64 {
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * offsetHz * float64(i) / sampleRate
		out[i] = complex64(complex(math.Cos(phase), math.Sin(phase)))
	}
	return out
}

// TestFFTPeakAccuracy is testable property #1 from spec.md §8: the detected
// peak bin converted to Hz lies within +/-1 bin of the injected tone offset,
// for every window function.
func TestFFTPeakAccuracy(t *testing.T) {
	const (
		fftSize    = 1024
		sampleRate = 2_000_000.0
		offsetHz   = 200_000.0
	)
	binHz := sampleRate / fftSize

	for _, w := range []WindowType{WindowNone, WindowHamming, WindowHann, WindowBlackman, WindowBartlett} {
		samples := syntheticTone(fftSize, sampleRate, offsetHz)
		coeffs := WindowedFFT(samples, fftSize, w, true)
		power := PowerSpectrum(coeffs)
		db := ToDB(power)

		maxIdx := 0
		maxVal := math.Inf(-1)
		for i, v := range db {
			if v > maxVal {
				maxVal = v
				maxIdx = i
			}
		}

		freqsNorm := NormalizedFreqAxis(fftSize)
		freqsHz := FreqAxisHz(freqsNorm, sampleRate, 0)
		detectedHz := freqsHz[maxIdx]

		require.InDelta(t, offsetHz, detectedHz, binHz, "window=%v", w)
	}
}

func TestPowerSpectrumAndDB(t *testing.T) {
	coeffs := []complex128{4, 0, 0, 0}
	power := PowerSpectrum(coeffs)
	require.InDelta(t, 4.0, power[0], 1e-9)
	db := ToDB(power)
	require.InDelta(t, 10*math.Log10(4.0), db[0], 1e-9)
	require.Less(t, db[1], -190.0) // epsilon floor
}

func TestFindPeaksMinDistance(t *testing.T) {
	// two close peaks within min distance: only the stronger survives
	db := []float64{-80, -80, -10, -80, -12, -80, -80}
	peaks := FindPeaks(db, -30, 3)
	require.Len(t, peaks, 1)
	require.Equal(t, 2, peaks[0].BinIndex)
}

func TestFindPeaksEmpty(t *testing.T) {
	require.Empty(t, FindPeaks(nil, -30, 1))
	require.Empty(t, FindPeaks([]float64{-80, -80, -80}, -30, 1))
}

func TestNoiseFloorRobustToSignal(t *testing.T) {
	db := make([]float64, 100)
	for i := range db {
		db[i] = -60
	}
	db[50] = 0 // one strong signal shouldn't move the 25th percentile much
	nf := NoiseFloor(db)
	require.InDelta(t, -60, nf, 1.0)
}
