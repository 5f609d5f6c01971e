package tuner

import (
	"context"
	"math"
	"math/rand"
)

// InjectedTone describes a synthetic signal the MockTuner will render into
// any read whose tuning window covers it.
type InjectedTone struct {
	FrequencyHz float64
	PowerDB     float64 // approximate; calibrated against a Hamming-windowed FFT
}

// MockTuner synthesizes IQ samples for tests and simulations: gaussian noise
// at a configurable floor, plus zero or more injected tones at specific
// absolute frequencies. It never touches real hardware.
type MockTuner struct {
	sampleRate float64
	centerFreq float64
	gain       string
	ppm        float64
	open       bool

	NoiseFloorDB float64 // default -60 dB
	Tones        []InjectedTone
	rng          *rand.Rand

	// FailAfterReads, when > 0, causes ReadSamples to return a transient USB
	// error after that many successful reads (for retry-path tests).
	FailAfterReads int
	reads          int
}

// NewMock builds a MockTuner with a default noise floor and a deterministic
// RNG seed so test runs are reproducible.
func NewMock(seed int64) *MockTuner {
	return &MockTuner{
		NoiseFloorDB: -60,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (m *MockTuner) Open(_ context.Context, sampleRate, centerFreq float64, gain string, ppm float64, _ int) error {
	if sampleRate <= 0 {
		return NewDeviceError(ErrUnsupportedSampleRate, "sample rate must be positive")
	}
	m.sampleRate = sampleRate
	m.centerFreq = centerFreq
	m.gain = gain
	m.ppm = ppm
	m.open = true
	return nil
}

func (m *MockTuner) SetSampleRate(_ context.Context, sampleRate float64) error {
	if sampleRate <= 0 {
		return NewDeviceError(ErrUnsupportedSampleRate, "sample rate must be positive")
	}
	m.sampleRate = sampleRate
	return nil
}

func (m *MockTuner) SetCenterFreq(_ context.Context, freq float64) error {
	if freq <= 0 {
		return NewDeviceError(ErrInvalidFrequency, "frequency must be positive")
	}
	m.centerFreq = freq
	return nil
}

func (m *MockTuner) SetGain(_ context.Context, gain string) error {
	m.gain = gain
	return nil
}

func (m *MockTuner) Close() error {
	m.open = false
	return nil
}

// noiseAmplitudeFor converts a target dB level (the mean per-bin level as
// measured by a Hamming-windowed power spectrum normalized by fft size) into
// a per-sample gaussian standard deviation. The per-bin mean is 2*std^2 times
// the window's mean power gain, so the result does not depend on FFT length.
func noiseAmplitudeFor(db float64) float64 {
	power := math.Pow(10, db/10)
	const hammingPowerGain = 0.3974 // mean of w[i]^2 over a Hamming window
	return math.Sqrt(power / (2 * hammingPowerGain))
}

// toneAmplitudeFor converts a target peak dB level into a sinusoid amplitude
// for a Hamming-windowed FFT of length n (peak bin gain ~ sum(window)/2).
func toneAmplitudeFor(db float64, n int) float64 {
	power := math.Pow(10, db/10)
	windowGain := 0.54 * float64(n) / 2 // approximate Hamming coherent gain
	return math.Sqrt(power*float64(n)) / windowGain
}

func (m *MockTuner) ReadSamples(_ context.Context, n int) ([]complex64, error) {
	if !m.open {
		return nil, NewDeviceError(ErrDeviceNotFound, "tuner not open")
	}
	m.reads++
	if m.FailAfterReads > 0 && m.reads > m.FailAfterReads {
		return nil, NewUSBError(110, "simulated transient overflow")
	}

	out := make([]complex64, n)
	noiseStd := noiseAmplitudeFor(m.NoiseFloorDB)
	for i := range out {
		ni := m.rng.NormFloat64() * noiseStd
		nq := m.rng.NormFloat64() * noiseStd
		out[i] = complex64(complex(ni, nq))
	}

	half := m.sampleRate / 2
	for _, tone := range m.Tones {
		offset := tone.FrequencyHz - m.centerFreq
		if math.Abs(offset) > half {
			continue // outside this tuning window
		}
		amp := toneAmplitudeFor(tone.PowerDB, n)
		for i := range out {
			phase := 2 * math.Pi * offset * float64(i) / m.sampleRate
			out[i] += complex64(complex(amp*math.Cos(phase), amp*math.Sin(phase)))
		}
	}
	return out, nil
}
