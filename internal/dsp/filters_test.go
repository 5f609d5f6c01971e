package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDCBlockFastRemovesOffset(t *testing.T) {
	x := []float64{5, 5, 5, 5}
	out := DCBlockFast(x)
	for _, v := range out {
		require.InDelta(t, 0, v, 1e-9)
	}
}

func TestDCBlockSlowConverges(t *testing.T) {
	x := make([]float64, 2000)
	for i := range x {
		x[i] = 3.0
	}
	out := DCBlockSlow(x, 0.995)
	require.InDelta(t, 0, out[len(out)-1], 0.1)
}

func TestDecimateKeepsEveryNth(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	out := Decimate(x, 2)
	require.Equal(t, []float64{0, 2, 4}, out)
}

func TestResamplePreservesEndpoints(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	out := Resample(x, 1000, 2000)
	require.InDelta(t, x[0], out[0], 1e-9)
	require.InDelta(t, x[len(x)-1], out[len(out)-1], 1e-9)
}

func TestClampCutoff(t *testing.T) {
	require.Equal(t, 0.001, clampCutoff(-1))
	require.Equal(t, 0.999, clampCutoff(5))
	require.Equal(t, 0.3, clampCutoff(0.3))
}

func TestButterworthLowPassAttenuatesHighFreq(t *testing.T) {
	const sampleRate = 48000.0
	lp := ButterworthLowPass(5, clampCutoff(1000.0/sampleRate*2))
	n := 4096
	low := make([]float64, n)
	high := make([]float64, n)
	for i := 0; i < n; i++ {
		low[i] = math.Sin(2 * math.Pi * 100 * float64(i) / sampleRate)
		high[i] = math.Sin(2 * math.Pi * 15000 * float64(i) / sampleRate)
	}
	lowOut := ButterworthLowPass(5, clampCutoff(1000.0/sampleRate*2)).Apply(low)
	highOut := lp.Apply(high)

	rms := func(x []float64) float64 {
		sum := 0.0
		for _, v := range x[n/2:] { // settle past transient
			sum += v * v
		}
		return math.Sqrt(sum / float64(len(x[n/2:])))
	}
	require.Greater(t, rms(lowOut), rms(highOut))
}

func TestPeakNormalize(t *testing.T) {
	x := []float64{1, -4, 2}
	out := PeakNormalize(x, 0.9)
	require.InDelta(t, 0.9, math.Abs(out[1]), 1e-9)
}
