package dsp

import (
	"math"
	"testing"
)

func TestHamming(t *testing.T) {
	tests := []struct {
		name string
		n    int
		exp  []float64
	}{
		{name: "python_vector_4", n: 4, exp: []float64{0.08, 0.77, 0.77, 0.08}},
		{name: "zero_length", n: 0, exp: []float64{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			win := Hamming(tt.n)
			if len(win) != len(tt.exp) {
				t.Fatalf("unexpected length: %d", len(win))
			}
			for i := range tt.exp {
				if math.Abs(win[i]-tt.exp[i]) > 1e-6 {
					t.Fatalf("index %d expected %.2f got %.6f", i, tt.exp[i], win[i])
				}
			}
		})
	}
}

func TestRectangularIsAllOnes(t *testing.T) {
	win := Rectangular(4)
	for i, v := range win {
		if v != 1 {
			t.Fatalf("index %d expected 1, got %v", i, v)
		}
	}
	if len(Rectangular(0)) != 0 {
		t.Fatalf("expected empty window for n=0")
	}
}

func TestHannEndpointsAreZero(t *testing.T) {
	win := Hann(8)
	if math.Abs(win[0]) > 1e-9 || math.Abs(win[len(win)-1]) > 1e-9 {
		t.Fatalf("expected Hann endpoints near zero, got %v and %v", win[0], win[len(win)-1])
	}
	if len(Hann(0)) != 0 {
		t.Fatalf("expected empty window for n=0")
	}
}

func TestBlackmanEndpointsAreNearZero(t *testing.T) {
	win := Blackman(8)
	if win[0] > 1e-3 {
		t.Fatalf("expected Blackman first sample near zero, got %v", win[0])
	}
	if win[len(win)/2] < win[0] {
		t.Fatalf("expected Blackman to peak near the center, center=%v first=%v", win[len(win)/2], win[0])
	}
}

func TestBartlettIsTriangular(t *testing.T) {
	win := Bartlett(5)
	exp := []float64{0, 0.5, 1, 0.5, 0}
	for i := range exp {
		if math.Abs(win[i]-exp[i]) > 1e-9 {
			t.Fatalf("index %d expected %v got %v", i, exp[i], win[i])
		}
	}
	if got := Bartlett(1); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected single-sample Bartlett window to be [1], got %v", got)
	}
}

func TestParseWindowRecognizesAllNames(t *testing.T) {
	cases := map[string]WindowType{
		"hamming":  WindowHamming,
		"hann":     WindowHann,
		"hanning":  WindowHann,
		"blackman": WindowBlackman,
		"bartlett": WindowBartlett,
		"bogus":    WindowNone,
	}
	for name, want := range cases {
		if got := ParseWindow(name); got != want {
			t.Fatalf("ParseWindow(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWindowDispatchesToRequestedType(t *testing.T) {
	n := 6
	cases := []struct {
		typ WindowType
		exp []float64
	}{
		{WindowNone, Rectangular(n)},
		{WindowHamming, Hamming(n)},
		{WindowHann, Hann(n)},
		{WindowBlackman, Blackman(n)},
		{WindowBartlett, Bartlett(n)},
	}
	for _, tt := range cases {
		got := Window(tt.typ, n)
		for i := range tt.exp {
			if math.Abs(got[i]-tt.exp[i]) > 1e-12 {
				t.Fatalf("Window(%v) index %d expected %v got %v", tt.typ, i, tt.exp[i], got[i])
			}
		}
	}
}

func TestApplyWindow(t *testing.T) {
	tests := []struct {
		name    string
		samples []complex64
		win     []float64
		exp     []complex128
	}{
		{name: "python_two_point", samples: []complex64{1 + 1i, 2 + 0i}, win: []float64{0.5, 0.25}, exp: []complex128{0.5 + 0.5i, 0.5 + 0i}},
		{name: "mismatched_lengths", samples: []complex64{1 + 0i}, win: []float64{}, exp: []complex128{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyWindow(tt.samples, tt.win)
			if len(out) != len(tt.exp) {
				t.Fatalf("length mismatch got %d want %d", len(out), len(tt.exp))
			}
			for i := range out {
				if real(out[i]) != real(tt.exp[i]) || imag(out[i]) != imag(tt.exp[i]) {
					t.Fatalf("index %d got %v want %v", i, out[i], tt.exp[i])
				}
			}
		})
	}
}
