package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// powerEpsilon guards log(0) when converting linear power to dB.
const powerEpsilon = 1e-20

// WindowedFFT computes a windowed complex DFT of samples. If len(samples) >
// fftSize the last fftSize samples are used (the most recent block); if
// shorter, the buffer is zero-padded. When shift is true, the output is
// rotated so that the zero-frequency bin lands at the center.
func WindowedFFT(samples []complex64, fftSize int, window WindowType, shift bool) []complex128 {
	if fftSize <= 0 {
		return []complex128{}
	}
	block := takeOrPad(samples, fftSize)
	win := Window(window, fftSize)
	windowed := ApplyWindow(block, win)
	coeffs := fourier.NewCmplxFFT(fftSize).Coefficients(nil, windowed)
	if shift {
		return FFTShift(coeffs)
	}
	return coeffs
}

// takeOrPad returns the last n samples of in, zero-padding on the left if
// in is shorter than n.
func takeOrPad(in []complex64, n int) []complex64 {
	out := make([]complex64, n)
	if len(in) == 0 {
		return out
	}
	if len(in) >= n {
		copy(out, in[len(in)-n:])
		return out
	}
	copy(out[n-len(in):], in)
	return out
}

// PowerSpectrum converts windowed FFT coefficients to linear power:
// power[i] = |X[i]|^2 / fftSize.
func PowerSpectrum(coeffs []complex128) []float64 {
	n := len(coeffs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i, c := range coeffs {
		mag2 := real(c)*real(c) + imag(c)*imag(c)
		out[i] = mag2 / float64(n)
	}
	return out
}

// ToDB converts a linear power spectrum to dB: 10*log10(max(p, epsilon)).
func ToDB(power []float64) []float64 {
	out := make([]float64, len(power))
	for i, p := range power {
		if p < powerEpsilon {
			p = powerEpsilon
		}
		out[i] = 10 * math.Log10(p)
	}
	return out
}

// NormalizedFreqAxis returns n bins evenly spaced over [-0.5, 0.5), matching
// a shifted FFT output of length n.
func NormalizedFreqAxis(n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(i)/float64(n) - 0.5
	}
	return out
}

// FreqAxisHz converts a normalized frequency axis to absolute Hz given a
// sample rate and center frequency.
func FreqAxisHz(normalized []float64, sampleRate, centerFreq float64) []float64 {
	out := make([]float64, len(normalized))
	for i, f := range normalized {
		out[i] = f*sampleRate + centerFreq
	}
	return out
}

// Peak is a detected local maximum in a power spectrum, expressed as a bin
// index and its power in dB.
type Peak struct {
	BinIndex int
	PowerDB  float64
}

// FindPeaks locates local maxima in a dB power spectrum at or above
// thresholdDB, separated by at least minDistanceBins. Candidates are
// collected as strict local maxima (or plateaus) and then greedily kept in
// descending power order subject to the minimum distance constraint.
func FindPeaks(powerDB []float64, thresholdDB float64, minDistanceBins int) []Peak {
	n := len(powerDB)
	if n == 0 {
		return nil
	}
	if minDistanceBins < 1 {
		minDistanceBins = 1
	}

	var candidates []Peak
	for i := 0; i < n; i++ {
		v := powerDB[i]
		if v < thresholdDB {
			continue
		}
		if i > 0 && powerDB[i-1] > v {
			continue
		}
		if i < n-1 && powerDB[i+1] > v {
			continue
		}
		candidates = append(candidates, Peak{BinIndex: i, PowerDB: v})
	}

	sortPeaksByPowerDesc(candidates)

	var kept []Peak
	for _, c := range candidates {
		tooClose := false
		for _, k := range kept {
			if abs(c.BinIndex-k.BinIndex) < minDistanceBins {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
		}
	}

	sortPeaksByBin(kept)
	return kept
}

func sortPeaksByPowerDesc(p []Peak) {
	sort.Slice(p, func(i, j int) bool { return p[i].PowerDB > p[j].PowerDB })
}

func sortPeaksByBin(p []Peak) {
	sort.Slice(p, func(i, j int) bool { return p[i].BinIndex < p[j].BinIndex })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// NoiseFloor estimates the ambient power level as the 25th percentile of a
// dB power spectrum, robust to strong in-band signals.
func NoiseFloor(powerDB []float64) float64 {
	if len(powerDB) == 0 {
		return 0
	}
	sorted := append([]float64(nil), powerDB...)
	sort.Float64s(sorted)
	return stat.Quantile(0.25, stat.Empirical, sorted, nil)
}
