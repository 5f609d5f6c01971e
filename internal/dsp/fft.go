package dsp

// FFTShift returns the FFT output shifted so that DC is centered.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := (n + 1) / 2
	shifted := append(data[half:], data[:half]...)
	return shifted
}
