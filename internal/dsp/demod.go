package dsp

import "math"

// unwrapAngles applies cumulative 2*pi correction so that phase jumps larger
// than pi are folded back into a continuous trace.
func unwrapAngles(angles []float64) []float64 {
	out := make([]float64, len(angles))
	if len(angles) == 0 {
		return out
	}
	out[0] = angles[0]
	correction := 0.0
	for i := 1; i < len(angles); i++ {
		diff := angles[i] - angles[i-1]
		for diff > math.Pi {
			correction -= 2 * math.Pi
			diff -= 2 * math.Pi
		}
		for diff < -math.Pi {
			correction += 2 * math.Pi
			diff += 2 * math.Pi
		}
		out[i] = angles[i] + correction
	}
	return out
}

func arg(samples []complex64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = math.Atan2(float64(imag(s)), float64(real(s)))
	}
	return out
}

func diff(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = 0
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// FMOptions configures FM demodulation.
type FMOptions struct {
	SampleRate   float64
	AudioRate    float64
	DeviationHz  float64 // default 75 kHz
	DeemphasisUS float64 // seconds; 0 disables de-emphasis
}

func (o FMOptions) withDefaults() FMOptions {
	if o.DeviationHz == 0 {
		o.DeviationHz = 75_000
	}
	return o
}

// DemodFM demodulates a real FM signal per spec.md §4.1: unwrap phase,
// differentiate, normalize by deviation, anti-alias low-pass, decimate to
// audio rate, DC block, optional de-emphasis, peak-normalize.
func DemodFM(samples []complex64, opts FMOptions) []float64 {
	opts = opts.withDefaults()
	if len(samples) == 0 || opts.SampleRate == 0 || opts.AudioRate == 0 {
		return []float64{}
	}

	phase := unwrapAngles(arg(samples))
	inst := diff(phase)

	scale := opts.SampleRate / (2 * math.Pi * opts.DeviationHz)
	audio := make([]float64, len(inst))
	for i, v := range inst {
		audio[i] = v * scale
	}

	lp := ButterworthLowPass(5, clampCutoff(opts.AudioRate/opts.SampleRate))
	audio = lp.Apply(audio)

	factor := int(opts.SampleRate / opts.AudioRate)
	if factor < 1 {
		factor = 1
	}
	audio = Decimate(audio, factor)

	audio = DCBlockFast(audio)

	if opts.DeemphasisUS > 0 {
		de := NewDeemphasisFilter(opts.DeemphasisUS, opts.AudioRate)
		audio = de.Apply(audio)
	}

	return PeakNormalize(audio, 0.9)
}

// StereoFMOptions configures stereo FM demodulation, adding the composite
// pilot/subcarrier parameters to FMOptions.
type StereoFMOptions struct {
	FMOptions
	PilotHz      float64 // default 19 kHz
	SubcarrierHz float64 // default 38 kHz
}

// DemodFMStereo demodulates a composite stereo FM baseband signal, returning
// independent left and right audio channels. The 19 kHz pilot is recovered
// via band-pass, squared to produce the 38 kHz subcarrier reference, and
// used to synchronously demodulate the 23-53 kHz L-R band; combined with the
// low-passed L+R (mono) signal this yields L = M+S, R = M-S.
func DemodFMStereo(samples []complex64, opts StereoFMOptions) (left, right []float64) {
	opts.FMOptions = opts.FMOptions.withDefaults()
	if opts.PilotHz == 0 {
		opts.PilotHz = 19_000
	}
	if opts.SubcarrierHz == 0 {
		opts.SubcarrierHz = 38_000
	}
	if len(samples) == 0 || opts.SampleRate == 0 {
		return nil, nil
	}

	phase := unwrapAngles(arg(samples))
	composite := diff(phase)
	scale := opts.SampleRate / (2 * math.Pi * opts.DeviationHz)
	for i := range composite {
		composite[i] *= scale
	}

	mono := ButterworthLowPass(5, clampCutoff(opts.AudioRate/opts.SampleRate)).Apply(composite)

	pilotBP := ButterworthBandPass(3, clampCutoff((opts.PilotHz-500)/opts.SampleRate*2), clampCutoff((opts.PilotHz+500)/opts.SampleRate*2))
	pilot := pilotBP.Apply(composite)

	subcarrierRef := make([]float64, len(pilot))
	for i, v := range pilot {
		subcarrierRef[i] = v * v // squaring a tone at f doubles it to 2f
	}

	lrBP := ButterworthBandPass(3, clampCutoff(23_000/opts.SampleRate*2), clampCutoff(53_000/opts.SampleRate*2))
	lrBand := lrBP.Apply(composite)

	lMinusR := make([]float64, len(lrBand))
	for i := range lrBand {
		lMinusR[i] = lrBand[i] * subcarrierRef[i]
	}
	lMinusR = ButterworthLowPass(5, clampCutoff(opts.AudioRate/opts.SampleRate)).Apply(lMinusR)

	factor := int(opts.SampleRate / opts.AudioRate)
	if factor < 1 {
		factor = 1
	}
	m := Decimate(mono, factor)
	s := Decimate(lMinusR, factor)

	l := make([]float64, len(m))
	r := make([]float64, len(m))
	for i := range m {
		var sv float64
		if i < len(s) {
			sv = s[i]
		}
		l[i] = m[i] + sv
		r[i] = m[i] - sv
	}

	l = DCBlockFast(l)
	r = DCBlockFast(r)
	if opts.DeemphasisUS > 0 {
		l = NewDeemphasisFilter(opts.DeemphasisUS, opts.AudioRate).Apply(l)
		r = NewDeemphasisFilter(opts.DeemphasisUS, opts.AudioRate).Apply(r)
	}
	return PeakNormalize(l, 0.9), PeakNormalize(r, 0.9)
}

// AMOptions configures AM envelope demodulation.
type AMOptions struct {
	SampleRate float64
	AudioRate  float64
}

// DemodAM performs envelope detection: |samples|, remove mean, low-pass,
// decimate, normalize.
func DemodAM(samples []complex64, opts AMOptions) []float64 {
	if len(samples) == 0 || opts.SampleRate == 0 || opts.AudioRate == 0 {
		return []float64{}
	}
	envelope := make([]float64, len(samples))
	for i, s := range samples {
		envelope[i] = math.Hypot(float64(real(s)), float64(imag(s)))
	}
	envelope = DCBlockFast(envelope)
	lp := ButterworthLowPass(5, clampCutoff(opts.AudioRate/opts.SampleRate))
	envelope = lp.Apply(envelope)
	factor := int(opts.SampleRate / opts.AudioRate)
	if factor < 1 {
		factor = 1
	}
	envelope = Decimate(envelope, factor)
	return PeakNormalize(envelope, 0.9)
}

// SSBSideband selects upper or lower sideband demodulation.
type SSBSideband int

const (
	USB SSBSideband = iota
	LSB
)

// SSBOptions configures single-sideband demodulation.
type SSBOptions struct {
	SampleRate float64
	AudioRate  float64
	Sideband   SSBSideband
}

// DemodSSB demodulates a single-sideband signal: take the real part (USB) or
// imaginary part (LSB), band-pass for voice (300-3000 Hz), decimate, and
// normalize.
func DemodSSB(samples []complex64, opts SSBOptions) []float64 {
	if len(samples) == 0 || opts.SampleRate == 0 || opts.AudioRate == 0 {
		return []float64{}
	}
	audio := make([]float64, len(samples))
	for i, s := range samples {
		if opts.Sideband == USB {
			audio[i] = float64(real(s))
		} else {
			audio[i] = float64(imag(s))
		}
	}
	bp := ButterworthBandPass(5, clampCutoff(300/opts.SampleRate*2), clampCutoff(3000/opts.SampleRate*2))
	audio = bp.Apply(audio)
	factor := int(opts.SampleRate / opts.AudioRate)
	if factor < 1 {
		factor = 1
	}
	audio = Decimate(audio, factor)
	return PeakNormalize(audio, 0.9)
}
