// Package scanner implements the spectrum scanner (spec.md §4.2, C2): it
// walks a frequency range by re-tuning a tuner.Tuner, computes power
// spectra, and reports merged peaks and noise floor.
package scanner

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/kx9v/rfscout/internal/dsp"
	"github.com/kx9v/rfscout/internal/logging"
	"github.com/kx9v/rfscout/internal/tuner"
)

// Peak is an immutable detected signal peak.
type Peak struct {
	FrequencyHz float64
	PowerDB     float64
	BandwidthHz float64 // 0 means unknown
}

// Result is the immutable value emitted by a scan call.
type Result struct {
	StartHz      float64
	EndHz        float64
	StepHz       float64
	Peaks        []Peak // ordered by power descending
	NoiseFloorDB float64
	ScanTimeS    float64
}

const mergeThresholdHz = 50_000

// Scanner holds the tunable parameters for repeated scans against one tuner.
type Scanner struct {
	Tuner       tuner.Tuner
	SampleRate  float64
	FFTSize     int
	Window      dsp.WindowType
	Gain        string
	ThresholdDB float64
	PPM         float64
	DeviceIndex int

	// USBRetries bounds retry attempts on transient USB overflow errors
	// during a single dwell read (spec.md §4.2, §7).
	USBRetries int

	Log logging.Logger
}

// New builds a Scanner with the teacher's customary defaults: 2.4 Msps,
// 8192-point Hann-windowed FFT, auto gain, -30 dB threshold.
func New(t tuner.Tuner) *Scanner {
	return &Scanner{
		Tuner:       t,
		SampleRate:  2_400_000,
		FFTSize:     8192,
		Window:      dsp.WindowHann,
		Gain:        "auto",
		ThresholdDB: -30,
		USBRetries:  3,
		Log:         logging.Component(logging.Default(), "scanner"),
	}
}

// Scan walks [startHz, endHz] in steps of stepHz (0.8*SampleRate if <= 0),
// dwelling dwellMs at each step, and returns the merged peaks and average
// noise floor. Any non-transient tuner failure aborts the scan (spec.md §7:
// no partial scan result).
func (s *Scanner) Scan(ctx context.Context, startHz, endHz, stepHz float64, dwellMs float64) (Result, error) {
	if stepHz <= 0 {
		stepHz = s.SampleRate * 0.8
	}
	if dwellMs <= 0 {
		dwellMs = 100
	}

	start := time.Now()
	if err := s.Tuner.Open(ctx, s.SampleRate, startHz, s.Gain, s.PPM, s.DeviceIndex); err != nil {
		return Result{}, err
	}
	defer s.Tuner.Close()

	numSteps := int(math.Ceil((endHz-startHz)/stepHz)) + 1
	samplesPerStep := int(s.SampleRate * dwellMs / 1000)

	var allPeaks []Peak
	var noiseFloors []float64

	for i := 0; i < numSteps; i++ {
		centerFreq := startHz + float64(i)*stepHz
		if err := s.Tuner.SetCenterFreq(ctx, centerFreq); err != nil {
			return Result{}, err
		}

		select {
		case <-time.After(10 * time.Millisecond): // allow PLL to settle
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}

		samples, err := s.readWithRetry(ctx, samplesPerStep)
		if err != nil {
			return Result{}, err
		}

		spectrum := dsp.WindowedFFT(samples, s.FFTSize, s.Window, true)
		power := dsp.PowerSpectrum(spectrum)
		powerDB := dsp.ToDB(power)
		peaks := dsp.FindPeaks(powerDB, s.ThresholdDB, 1)
		freqAxis := dsp.FreqAxisHz(dsp.NormalizedFreqAxis(s.FFTSize), s.SampleRate, centerFreq)

		for _, p := range peaks {
			absFreq := freqAxis[p.BinIndex]
			if absFreq >= startHz && absFreq <= endHz {
				allPeaks = append(allPeaks, Peak{FrequencyHz: absFreq, PowerDB: p.PowerDB})
			}
		}
		noiseFloors = append(noiseFloors, dsp.NoiseFloor(powerDB))
	}

	merged := MergePeaks(allPeaks, mergeThresholdHz)
	sort.Slice(merged, func(i, j int) bool { return merged[i].PowerDB > merged[j].PowerDB })

	return Result{
		StartHz:      startHz,
		EndHz:        endHz,
		StepHz:       stepHz,
		Peaks:        merged,
		NoiseFloorDB: dsp.Mean(noiseFloors),
		ScanTimeS:    time.Since(start).Seconds(),
	}, nil
}

// QuickScan performs one power-spectrum pass at a single center frequency,
// with no retuning loop.
func (s *Scanner) QuickScan(ctx context.Context, centerFreqHz, bandwidthHz float64) ([]Peak, error) {
	if err := s.Tuner.Open(ctx, s.SampleRate, centerFreqHz, s.Gain, s.PPM, s.DeviceIndex); err != nil {
		return nil, err
	}
	defer s.Tuner.Close()

	samples, err := s.readWithRetry(ctx, s.FFTSize*4)
	if err != nil {
		return nil, err
	}

	spectrum := dsp.WindowedFFT(samples, s.FFTSize, s.Window, true)
	power := dsp.PowerSpectrum(spectrum)
	powerDB := dsp.ToDB(power)
	peaks := dsp.FindPeaks(powerDB, s.ThresholdDB, 1)
	freqAxis := dsp.FreqAxisHz(dsp.NormalizedFreqAxis(s.FFTSize), s.SampleRate, centerFreqHz)

	out := make([]Peak, 0, len(peaks))
	for _, p := range peaks {
		out = append(out, Peak{FrequencyHz: freqAxis[p.BinIndex], PowerDB: p.PowerDB})
	}
	return out, nil
}

// readWithRetry reads n samples, retrying up to s.USBRetries times on a
// transient USB overflow (spec.md §4.2, §7). Other errors propagate
// immediately.
func (s *Scanner) readWithRetry(ctx context.Context, n int) ([]complex64, error) {
	var samples []complex64
	attempt := 0
	op := func() error {
		attempt++
		out, err := s.Tuner.ReadSamples(ctx, n)
		if err != nil {
			if tuner.IsTransientUSB(err) && attempt <= s.USBRetries {
				s.Log.Warn("transient USB overflow, retrying", logging.Attempt(attempt))
				return err
			}
			return backoff.Permanent(err)
		}
		samples = out
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.USBRetries))
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return samples, nil
}

// MergePeaks merges peaks within thresholdHz of each other (by frequency
// ascending), keeping the midpoint frequency and the higher power. Applying
// it a second time to its own output is a no-op (spec.md testable property
// 3).
func MergePeaks(peaks []Peak, thresholdHz float64) []Peak {
	if len(peaks) == 0 {
		return nil
	}
	sorted := make([]Peak, len(peaks))
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FrequencyHz < sorted[j].FrequencyHz })

	merged := make([]Peak, 0, len(sorted))
	current := sorted[0]
	for _, p := range sorted[1:] {
		if p.FrequencyHz-current.FrequencyHz < thresholdHz {
			if p.PowerDB > current.PowerDB {
				current = Peak{
					FrequencyHz: (current.FrequencyHz + p.FrequencyHz) / 2,
					PowerDB:     p.PowerDB,
				}
			}
		} else {
			merged = append(merged, current)
			current = p
		}
	}
	merged = append(merged, current)
	return merged
}
