package dsp

import "math"

// WindowType selects a windowing function for the windowed FFT.
type WindowType int

const (
	WindowNone WindowType = iota
	WindowHamming
	WindowHann
	WindowBlackman
	WindowBartlett
)

// ParseWindow maps a lowercase name to a WindowType, defaulting to WindowNone
// for unrecognized input.
func ParseWindow(name string) WindowType {
	switch name {
	case "hamming":
		return WindowHamming
	case "hann", "hanning":
		return WindowHann
	case "blackman":
		return WindowBlackman
	case "bartlett":
		return WindowBartlett
	default:
		return WindowNone
	}
}

// Window returns a window of length n for the given type. If n is zero or
// negative, an empty slice is returned. WindowNone returns a slice of ones.
func Window(w WindowType, n int) []float64 {
	switch w {
	case WindowHamming:
		return Hamming(n)
	case WindowHann:
		return Hann(n)
	case WindowBlackman:
		return Blackman(n)
	case WindowBartlett:
		return Bartlett(n)
	default:
		return Rectangular(n)
	}
}

// Rectangular returns a window of n ones (i.e. no windowing).
func Rectangular(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	return win
}

// Hamming returns a Hamming window of length n.
// If n is zero or negative, an empty slice is returned.
func Hamming(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// Hann returns a Hann window of length n.
func Hann(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// Blackman returns a Blackman window of length n.
func Blackman(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		win[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return win
}

// Bartlett returns a Bartlett (triangular) window of length n.
func Bartlett(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	if n == 1 {
		win[0] = 1
		return win
	}
	half := float64(n-1) / 2
	for i := 0; i < n; i++ {
		win[i] = 1 - math.Abs((float64(i)-half)/half)
	}
	return win
}

// ApplyWindow multiplies the input complex samples with the provided window.
// The window length must match the input length.
func ApplyWindow(samples []complex64, window []float64) []complex128 {
	if len(samples) != len(window) {
		return []complex128{}
	}
	out := make([]complex128, len(samples))
	for i, v := range samples {
		out[i] = complex(float64(real(v))*window[i], float64(imag(v))*window[i])
	}
	return out
}
