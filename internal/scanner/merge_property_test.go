package scanner

import (
	"testing"

	"pgregory.net/rapid"
)

// TestMergePeaksIsIdempotent checks the invariant documented on MergePeaks:
// applying it a second time to its own output never changes the result,
// for any set of peaks and any positive merge threshold.
func TestMergePeaksIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		thresholdHz := rapid.Float64Range(1, 1_000_000).Draw(t, "thresholdHz")

		peaks := make([]Peak, n)
		for i := range peaks {
			peaks[i] = Peak{
				FrequencyHz: rapid.Float64Range(0, 2_000_000_000).Draw(t, "freqHz"),
				PowerDB:     rapid.Float64Range(-120, 20).Draw(t, "powerDB"),
			}
		}

		once := MergePeaks(peaks, thresholdHz)
		twice := MergePeaks(once, thresholdHz)

		if len(once) != len(twice) {
			t.Fatalf("merge not idempotent: once=%d twice=%d", len(once), len(twice))
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Fatalf("merge not idempotent at index %d: %+v != %+v", i, once[i], twice[i])
			}
		}
	})
}
