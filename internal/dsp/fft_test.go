package dsp

import "testing"

func TestFFTShift(t *testing.T) {
	in := []complex128{0, 1, 2, 3}
	out := FFTShift(in)
	expected := []complex128{2, 3, 0, 1}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("index %d expected %v got %v", i, expected[i], out[i])
		}
	}
}

func TestFFTShiftOddLength(t *testing.T) {
	in := []complex128{0, 1, 2, 3, 4}
	out := FFTShift(in)
	expected := []complex128{3, 4, 0, 1, 2}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("index %d expected %v got %v", i, expected[i], out[i])
		}
	}
}

func TestFFTShiftEmpty(t *testing.T) {
	if out := FFTShift(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}
